package craft

import (
	"sort"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/domain/fabrication"
)

// finalizeOneShots cuts each one-shot pick off where the next pick of the
// same choice starts, and at the end of the segment.
func (f *Fabricator) finalizeOneShots() {
	cut := map[uuid.UUID]bool{}
	for _, c := range f.out.Choices {
		if c.InstrumentID == nil {
			continue
		}
		inst, ok := f.snap.Instrument(*c.InstrumentID)
		if !ok {
			continue
		}
		if inst.Config.OneShotCutoffEnabled || f.tpl.IsOneShotCutoff(inst.Type) {
			cut[c.ID] = true
		}
	}
	if len(cut) == 0 {
		return
	}
	byChoice := map[uuid.UUID][]*fabrication.SegmentChoiceArrangementPick{}
	for _, p := range f.out.Picks {
		if cut[p.SegmentChoiceID] {
			byChoice[p.SegmentChoiceID] = append(byChoice[p.SegmentChoiceID], p)
		}
	}
	drop := map[*fabrication.SegmentChoiceArrangementPick]bool{}
	end := f.tc.TotalMicros()
	for _, picks := range byChoice {
		for _, p := range cutoffPicks(picks, end) {
			drop[p] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	kept := f.out.Picks[:0]
	for _, p := range f.out.Picks {
		if !drop[p] {
			kept = append(kept, p)
		}
	}
	f.out.Picks = kept
}

// cutoffPicks shortens picks in place so none overlaps the next later start or
// runs past end. Picks sharing a start are cut together. It returns the picks that start at or after end.
func cutoffPicks(picks []*fabrication.SegmentChoiceArrangementPick, end int64) []*fabrication.SegmentChoiceArrangementPick {
	sorted := append([]*fabrication.SegmentChoiceArrangementPick(nil), picks...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartAtSegmentMicros < sorted[j].StartAtSegmentMicros
	})
	var dropped []*fabrication.SegmentChoiceArrangementPick
	for i, p := range sorted {
		if p.StartAtSegmentMicros >= end {
			dropped = append(dropped, p)
			continue
		}
		limit := end
		for _, next := range sorted[i+1:] {
			if next.StartAtSegmentMicros > p.StartAtSegmentMicros {
				if next.StartAtSegmentMicros < end {
					limit = next.StartAtSegmentMicros
				}
				break
			}
		}
		if room := limit - p.StartAtSegmentMicros; p.LengthMicros > room {
			p.LengthMicros = room
		}
	}
	return dropped
}
