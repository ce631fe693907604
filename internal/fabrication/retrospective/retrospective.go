// Package retrospective exposes prior segments of a chain to a craft pass.
package retrospective

import (
	"sort"

	"github.com/google/uuid"

	types "github.com/yungbote/fabricator/internal/domain/content"
	"github.com/yungbote/fabricator/internal/domain/fabrication"
)

// Record is one prior segment with everything crafted into it.
type Record struct {
	Segment      fabrication.Segment
	Choices      []fabrication.SegmentChoice
	Arrangements []fabrication.SegmentChoiceArrangement
	Picks        []fabrication.SegmentChoiceArrangementPick
	Memes        []fabrication.SegmentMeme
	Chords       []fabrication.SegmentChord
}

// Retrospective is read-only once built.
type Retrospective struct {
	records []Record
}

func New(records ...Record) *Retrospective {
	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Segment.Offset < sorted[j].Segment.Offset })
	return &Retrospective{records: sorted}
}

func (r *Retrospective) Len() int {
	if r == nil {
		return 0
	}
	return len(r.records)
}

// Previous is the highest-offset prior segment.
func (r *Retrospective) Previous() (*Record, bool) {
	if r.Len() == 0 {
		return nil, false
	}
	return &r.records[len(r.records)-1], true
}

// MainRun returns the prior segments sharing the previous segment's main
// program run, oldest first: everything since the last segment that was not
// a continuation.
func (r *Retrospective) MainRun() []Record {
	if r.Len() == 0 {
		return nil
	}
	start := 0
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].Segment.Type != fabrication.SegmentTypeContinue {
			start = i
			break
		}
	}
	return r.records[start:]
}

func (r *Retrospective) PreviousChoiceOfProgramType(t types.ProgramType) (*fabrication.SegmentChoice, bool) {
	prev, ok := r.Previous()
	if !ok {
		return nil, false
	}
	for i := range prev.Choices {
		c := &prev.Choices[i]
		if c.ProgramType == string(t) && c.ProgramVoiceID == nil && c.InstrumentID == nil {
			return c, true
		}
	}
	for i := range prev.Choices {
		if prev.Choices[i].ProgramType == string(t) {
			return &prev.Choices[i], true
		}
	}
	return nil, false
}

// PreviousChoicesOfProgramType returns every choice of the given program type
// in the previous segment.
func (r *Retrospective) PreviousChoicesOfProgramType(t types.ProgramType) []fabrication.SegmentChoice {
	prev, ok := r.Previous()
	if !ok {
		return nil
	}
	out := []fabrication.SegmentChoice{}
	for _, c := range prev.Choices {
		if c.ProgramType == string(t) {
			out = append(out, c)
		}
	}
	return out
}

// PreviousChoiceOfVoice finds the previous segment's choice for a voice id.
func (r *Retrospective) PreviousChoiceOfVoice(voiceID uuid.UUID) (*fabrication.SegmentChoice, bool) {
	prev, ok := r.Previous()
	if !ok {
		return nil, false
	}
	for i := range prev.Choices {
		if v := prev.Choices[i].ProgramVoiceID; v != nil && *v == voiceID {
			return &prev.Choices[i], true
		}
	}
	return nil, false
}

// RunChoicesWithVoice returns choices across the main run that carry a voice, newest first.
func (r *Retrospective) RunChoicesWithVoice() []fabrication.SegmentChoice {
	run := r.MainRun()
	out := []fabrication.SegmentChoice{}
	for i := len(run) - 1; i >= 0; i-- {
		for _, c := range run[i].Choices {
			if c.ProgramVoiceID != nil && c.InstrumentID != nil {
				out = append(out, c)
			}
		}
	}
	return out
}

func (r *Retrospective) PicksByChoice(choiceID uuid.UUID) []fabrication.SegmentChoiceArrangementPick {
	out := []fabrication.SegmentChoiceArrangementPick{}
	for _, rec := range r.records {
		for _, p := range rec.Picks {
			if p.SegmentChoiceID == choiceID {
				out = append(out, p)
			}
		}
	}
	return out
}

// FromOutput turns a finished craft pass into a record for the next one.
func FromOutput(out *fabrication.CraftOutput) Record {
	var rec Record
	if out == nil {
		return rec
	}
	if out.Segment != nil {
		rec.Segment = *out.Segment
	}
	for _, c := range out.Choices {
		rec.Choices = append(rec.Choices, *c)
	}
	for _, a := range out.Arrangements {
		rec.Arrangements = append(rec.Arrangements, *a)
	}
	for _, p := range out.Picks {
		rec.Picks = append(rec.Picks, *p)
	}
	for _, m := range out.Memes {
		rec.Memes = append(rec.Memes, *m)
	}
	for _, c := range out.Chords {
		rec.Chords = append(rec.Chords, *c)
	}
	return rec
}
