package meme

// Stack is the active meme set of a segment under a taxonomy.
type Stack struct {
	taxonomy *Taxonomy
	iso      *Isometry
	active   []Meme
}

func NewStack(taxonomy *Taxonomy, active ...string) *Stack {
	s := &Stack{taxonomy: taxonomy, iso: NewIsometry()}
	s.Add(active...)
	return s
}

func (s *Stack) Add(raw ...string) {
	for _, m := range ParseAll(raw) {
		s.active = append(s.active, m)
	}
	s.iso.Add(raw...)
}

// Memes returns the normalized active memes without duplicates, in insertion order.
func (s *Stack) Memes() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, m := range s.active {
		name := m.Name
		if m.Anti {
			name = antiPrefix + name
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// IsAllowed checks the union of active and candidate memes against the
// taxonomy, anti memes in either direction, and unique memes already active.
func (s *Stack) IsAllowed(raw []string) bool {
	candidate := ParseAll(raw)

	pos, anti := map[string]bool{}, map[string]bool{}
	for _, m := range s.active {
		if m.Anti {
			anti[m.Stem] = true
		} else {
			pos[m.Stem] = true
		}
	}
	candPos, candAnti := map[string]bool{}, map[string]bool{}
	for _, m := range candidate {
		if m.Anti {
			candAnti[m.Stem] = true
			continue
		}
		if m.Unique && pos[m.Stem] {
			return false
		}
		candPos[m.Stem] = true
	}
	for stem := range candPos {
		if anti[stem] || candAnti[stem] {
			return false
		}
	}
	for stem := range candAnti {
		if pos[stem] {
			return false
		}
	}

	union := make([]Meme, 0, len(s.active)+len(candidate))
	union = append(union, s.active...)
	union = append(union, candidate...)
	return s.taxonomy.allowed(union)
}

func (s *Stack) Score(raw []string) float64 {
	return s.iso.Score(raw)
}
