package meme

// Isometry is a set of normalized stems used to score overlap.
type Isometry struct {
	sources []string
	stems   map[string]int
}

func NewIsometry(raw ...string) *Isometry {
	iso := &Isometry{stems: map[string]int{}}
	iso.Add(raw...)
	return iso
}

func (iso *Isometry) Add(raw ...string) {
	for _, r := range raw {
		m := Parse(r)
		if m.Stem == "" || m.Anti {
			continue
		}
		iso.sources = append(iso.sources, r)
		iso.stems[m.Stem]++
	}
}

// Score counts candidate memes whose stem is present in the set.
func (iso *Isometry) Score(raw []string) float64 {
	score := 0.0
	for _, m := range ParseAll(raw) {
		if m.Anti {
			continue
		}
		if iso.stems[m.Stem] > 0 {
			score++
		}
	}
	return score
}

func (iso *Isometry) Has(raw string) bool {
	return iso.stems[Parse(raw).Stem] > 0
}

func (iso *Isometry) Sources() []string {
	return append([]string(nil), iso.sources...)
}
