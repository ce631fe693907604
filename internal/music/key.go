package music

import "strings"

// Key is a tonic and a mode, e.g. "C minor".
type Key struct {
	Tonic PitchClass
	Minor bool
}

// ParseKey reads "C", "Cm", "C minor", "Eb Major". Unparseable keys fall back to C major.
func ParseKey(s string) Key {
	pc, rest, err := ParsePitchClass(s)
	if err != nil {
		return Key{}
	}
	rest = strings.ToLower(strings.TrimSpace(rest))
	minor := strings.HasPrefix(rest, "m") && !strings.HasPrefix(rest, "maj")
	return Key{Tonic: pc, Minor: minor}
}

// Accidental prefers flats for flat keys and minor keys on flat tonics.
func (k Key) Accidental() Accidental {
	switch k.Tonic {
	case F, As, Ds, Gs, Cs:
		return Flat
	case D, G, C:
		if k.Minor {
			return Flat
		}
	}
	return Sharp
}

func (k Key) String() string {
	mode := "Major"
	if k.Minor {
		mode = "Minor"
	}
	return k.Tonic.Name(k.Accidental()) + " " + mode
}
