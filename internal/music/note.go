// Package music models pitch classes, notes, note ranges and chord names.
package music

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Atonal is the marker for a note with no pitch, e.g. a drum hit.
const Atonal = "X"

type PitchClass int

const (
	C PitchClass = iota
	Cs
	D
	Ds
	E
	F
	Fs
	G
	Gs
	A
	As
	B
)

// Accidental selects sharp or flat spelling when rendering pitch classes.
type Accidental int

const (
	Sharp Accidental = iota
	Flat
)

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
var flatNames = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

var letterOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

func (pc PitchClass) Name(acc Accidental) string {
	if acc == Flat {
		return flatNames[pc.normalize()]
	}
	return sharpNames[pc.normalize()]
}

func (pc PitchClass) normalize() int {
	return ((int(pc) % 12) + 12) % 12
}

// ParsePitchClass reads a leading pitch class such as "C", "F#" or "Bb" and returns the rest of the string.
func ParsePitchClass(s string) (PitchClass, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", fmt.Errorf("empty pitch class")
	}
	base, ok := letterOffsets[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, "", fmt.Errorf("invalid note letter in %q", s)
	}
	rest := s[1:]
	if len(rest) > 0 {
		switch rest[0] {
		case '#':
			base++
			rest = rest[1:]
		case 'b':
			base--
			rest = rest[1:]
		}
	}
	return PitchClass(((base % 12) + 12) % 12), rest, nil
}

// Note is a pitch class in an octave. The zero value with atonal set is the atonal marker.
type Note struct {
	PitchClass PitchClass
	Octave     int
	atonal     bool
}

func AtonalNote() Note { return Note{atonal: true} }

func NoteOf(pc PitchClass, octave int) Note {
	return Note{PitchClass: PitchClass(pc.normalize()), Octave: octave}
}

// NoteFromPitch converts an absolute semitone number (octave*12 + pitch class) to a note.
func NoteFromPitch(pitch int) Note {
	octave := pitch / 12
	pc := pitch % 12
	if pc < 0 {
		pc += 12
		octave--
	}
	return Note{PitchClass: PitchClass(pc), Octave: octave}
}

// ParseNote reads "C4", "F#3", "Bb2" or the atonal marker "X".
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, Atonal) {
		return AtonalNote(), nil
	}
	pc, rest, err := ParsePitchClass(s)
	if err != nil {
		return Note{}, err
	}
	if rest == "" {
		return Note{}, fmt.Errorf("missing octave in note %q", s)
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return Note{}, fmt.Errorf("invalid octave in note %q: %w", s, err)
	}
	return NoteOf(pc, octave), nil
}

// ParseNotes reads a comma separated list of notes, skipping blanks.
func ParseNotes(csv string) ([]Note, error) {
	var out []Note
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		n, err := ParseNote(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (n Note) IsAtonal() bool { return n.atonal }

// Pitch is the absolute semitone number; atonal notes report -1.
func (n Note) Pitch() int {
	if n.atonal {
		return -1
	}
	return n.Octave*12 + n.PitchClass.normalize()
}

func (n Note) Shift(semitones int) Note {
	if n.atonal {
		return n
	}
	return NoteFromPitch(n.Pitch() + semitones)
}

// Delta is the signed semitone distance from n to other.
func (n Note) Delta(other Note) int {
	return other.Pitch() - n.Pitch()
}

func (n Note) Equal(other Note) bool {
	if n.atonal || other.atonal {
		return n.atonal == other.atonal
	}
	return n.Pitch() == other.Pitch()
}

func (n Note) Name(acc Accidental) string {
	if n.atonal {
		return Atonal
	}
	return n.PitchClass.Name(acc) + strconv.Itoa(n.Octave)
}

func (n Note) String() string { return n.Name(Sharp) }

// SortNotes orders notes by ascending pitch, atonal notes first.
func SortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Pitch() < notes[j].Pitch() })
}

// JoinNotes renders notes as a comma separated list.
func JoinNotes(notes []Note, acc Accidental) string {
	parts := make([]string, 0, len(notes))
	for _, n := range notes {
		parts = append(parts, n.Name(acc))
	}
	return strings.Join(parts, ",")
}
