// Package notepicker maps event notes onto the notes of a chord voicing.
package notepicker

import (
	"math/rand"

	"github.com/yungbote/fabricator/internal/music"
)

// Picker consumes voicing notes as it picks them and keeps its target range
// tight around what it has picked so far.
type Picker struct {
	rng            *rand.Rand
	targetRange    music.NoteRange
	voicingRange   music.NoteRange
	available      []music.Note
	seekInversions bool
	picked         []music.Note
}

func New(targetRange music.NoteRange, voicingNotes []music.Note, seekInversions bool, rng *rand.Rand) *Picker {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	available := make([]music.Note, 0, len(voicingNotes))
	for _, n := range voicingNotes {
		if !n.IsAtonal() {
			available = append(available, n)
		}
	}
	music.SortNotes(available)
	return &Picker{
		rng:            rng,
		targetRange:    targetRange,
		voicingRange:   music.RangeOf(available...),
		available:      available,
		seekInversions: seekInversions,
	}
}

// Pick processes source notes in ascending pitch order. Each source note adds
// exactly one note to Picked; when nothing at all was picked a single atonal
// placeholder is recorded.
func (p *Picker) Pick(sourceNotes []music.Note) {
	sorted := append([]music.Note(nil), sourceNotes...)
	music.SortNotes(sorted)
	for _, n := range sorted {
		p.picked = append(p.picked, p.pickOne(n))
	}
	if len(p.picked) == 0 {
		p.picked = append(p.picked, music.AtonalNote())
	}
}

func (p *Picker) Picked() []music.Note {
	return append([]music.Note(nil), p.picked...)
}

func (p *Picker) TargetRange() music.NoteRange { return p.targetRange }

func (p *Picker) pickOne(source music.Note) music.Note {
	if len(p.available) == 0 {
		return music.AtonalNote()
	}
	var idx int
	if source.IsAtonal() {
		idx = p.rng.Intn(len(p.available))
	} else {
		target := source.Shift(p.voicingRange.OctaveShiftToward(source))
		idx = nearest(p.available, target)
		if p.seekInversions {
			idx = p.seekInversion(idx)
		}
	}
	picked := p.available[idx]
	p.available = append(p.available[:idx], p.available[idx+1:]...)
	p.targetRange = p.targetRange.Expand(picked)
	return picked
}

// seekInversion swaps a pick that escapes the target range for the nearest
// remaining note on the inside of the violated boundary.
func (p *Picker) seekInversion(idx int) int {
	low, ok := p.targetRange.Low()
	if !ok {
		return idx
	}
	high, _ := p.targetRange.High()
	pitch := p.available[idx].Pitch()
	switch {
	case pitch > high.Pitch():
		best := -1
		for i, n := range p.available {
			if n.Pitch() <= high.Pitch() && (best < 0 || n.Pitch() > p.available[best].Pitch()) {
				best = i
			}
		}
		if best >= 0 {
			return best
		}
	case pitch < low.Pitch():
		best := -1
		for i, n := range p.available {
			if n.Pitch() >= low.Pitch() && (best < 0 || n.Pitch() < p.available[best].Pitch()) {
				best = i
			}
		}
		if best >= 0 {
			return best
		}
	}
	return idx
}

// nearest returns the index of the note with the smallest semitone distance;
// ties go to the lower note.
func nearest(notes []music.Note, target music.Note) int {
	best, bestDist := 0, -1
	for i, n := range notes {
		d := n.Delta(target)
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
