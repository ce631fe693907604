package music

import (
	"fmt"
	"strings"
)

// Chord is a parsed chord name: a root and the pitch classes it contains.
type Chord struct {
	Name         string
	Root         PitchClass
	Quality      string
	PitchClasses []PitchClass
}

// ParseChord reads names such as "C", "Am7", "F#dim", "Bbmaj7" or "Gsus4".
// The "no chord" marker "NC" parses to an empty chord.
func ParseChord(name string) (Chord, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "NC") {
		return Chord{Name: name}, nil
	}
	root, rest, err := ParsePitchClass(name)
	if err != nil {
		return Chord{}, fmt.Errorf("parse chord %q: %w", name, err)
	}
	// slash chords voice the bass separately; the upper structure decides the quality
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	quality := chordQuality(rest)
	intervals := chordIntervals(quality, rest)
	pcs := make([]PitchClass, 0, len(intervals))
	for _, iv := range intervals {
		pcs = append(pcs, PitchClass((int(root)+iv)%12))
	}
	return Chord{Name: name, Root: root, Quality: quality, PitchClasses: pcs}, nil
}

func (c Chord) IsNoChord() bool { return len(c.PitchClasses) == 0 }

func (c Chord) Contains(pc PitchClass) bool {
	for _, p := range c.PitchClasses {
		if p == pc {
			return true
		}
	}
	return false
}

// Voice spreads the chord's pitch classes upward from the given octave.
func (c Chord) Voice(octave int) []Note {
	out := make([]Note, 0, len(c.PitchClasses))
	prev := -1
	for _, pc := range c.PitchClasses {
		n := NoteOf(pc, octave)
		for n.Pitch() <= prev {
			n = n.Shift(12)
		}
		out = append(out, n)
		prev = n.Pitch()
	}
	return out
}

func chordQuality(rest string) string {
	switch {
	case strings.HasPrefix(rest, "maj"), strings.HasPrefix(rest, "M"):
		return "major"
	case strings.HasPrefix(rest, "min"), strings.HasPrefix(rest, "m"), strings.HasPrefix(rest, "-"):
		return "minor"
	case strings.HasPrefix(rest, "dim"), strings.HasPrefix(rest, "°"):
		return "diminished"
	case strings.HasPrefix(rest, "aug"), strings.HasPrefix(rest, "+"):
		return "augmented"
	case strings.HasPrefix(rest, "sus2"):
		return "sus2"
	case strings.HasPrefix(rest, "sus4"), strings.HasPrefix(rest, "sus"):
		return "sus4"
	default:
		return "major"
	}
}

func chordIntervals(quality, rest string) []int {
	var intervals []int
	switch quality {
	case "minor":
		intervals = []int{0, 3, 7}
	case "diminished":
		intervals = []int{0, 3, 6}
	case "augmented":
		intervals = []int{0, 4, 8}
	case "sus2":
		intervals = []int{0, 2, 7}
	case "sus4":
		intervals = []int{0, 5, 7}
	default:
		intervals = []int{0, 4, 7}
	}
	switch {
	case strings.Contains(rest, "maj7"), strings.HasPrefix(rest, "M7"):
		intervals = append(intervals, 11)
	case strings.Contains(rest, "7"):
		intervals = append(intervals, 10)
	case strings.Contains(rest, "6"):
		intervals = append(intervals, 9)
	}
	if strings.Contains(rest, "9") {
		intervals = append(intervals, 2)
	}
	return intervals
}
