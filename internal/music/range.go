package music

// NoteRange is an inclusive pitch range that may be empty.
type NoteRange struct {
	low, high Note
	set       bool
}

func RangeOf(notes ...Note) NoteRange {
	var r NoteRange
	for _, n := range notes {
		r = r.Expand(n)
	}
	return r
}

func (r NoteRange) Empty() bool { return !r.set }

func (r NoteRange) Low() (Note, bool)  { return r.low, r.set }
func (r NoteRange) High() (Note, bool) { return r.high, r.set }

// Expand returns the range grown to include n. Atonal notes are ignored.
func (r NoteRange) Expand(n Note) NoteRange {
	if n.IsAtonal() {
		return r
	}
	if !r.set {
		return NoteRange{low: n, high: n, set: true}
	}
	if n.Pitch() < r.low.Pitch() {
		r.low = n
	}
	if n.Pitch() > r.high.Pitch() {
		r.high = n
	}
	return r
}

func (r NoteRange) Includes(n Note) bool {
	if !r.set || n.IsAtonal() {
		return false
	}
	return n.Pitch() >= r.low.Pitch() && n.Pitch() <= r.high.Pitch()
}

// Median is the pitch at the center of the range, rounded down.
func (r NoteRange) Median() (int, bool) {
	if !r.set {
		return 0, false
	}
	return (r.low.Pitch() + r.high.Pitch()) / 2, true
}

// OctaveShiftToward returns the whole-octave shift that moves pitch closest to the center of r.
func (r NoteRange) OctaveShiftToward(n Note) int {
	center, ok := r.Median()
	if !ok || n.IsAtonal() {
		return 0
	}
	best := 0
	bestDist := abs(n.Pitch() - center)
	for shift := -10; shift <= 10; shift++ {
		d := abs(n.Pitch() + shift*12 - center)
		if d < bestDist {
			best, bestDist = shift, d
		}
	}
	return best * 12
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
