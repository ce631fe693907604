package meme

import (
	"testing"

	types "github.com/yungbote/fabricator/internal/domain/content"
)

func colorTaxonomy() *Taxonomy {
	return NewTaxonomy([]types.MemeCategory{
		{Name: "color", Memes: []string{"RED", "BLUE", "GREEN"}},
		{Name: "SEASON", Memes: []string{"WINTER", "SUMMER"}},
	})
}

func TestParseGrammar(t *testing.T) {
	cases := []struct {
		raw    string
		name   string
		anti   bool
		unique bool
	}{
		{"red", "RED", false, false},
		{" !Blue ", "BLUE", true, false},
		{"$Lead", "LEAD", false, true},
		{"!$ECHO", "ECHO", true, true},
	}
	for _, c := range cases {
		m := Parse(c.raw)
		if m.Name != c.name || m.Anti != c.anti || m.Unique != c.unique {
			t.Fatalf("Parse(%q) = %+v", c.raw, m)
		}
	}
}

func TestStemMatchesInflections(t *testing.T) {
	if Stem("RUNNING") != Stem("run") {
		t.Fatalf("RUNNING and run should share a stem: %q vs %q", Stem("RUNNING"), Stem("run"))
	}
	if Stem("DARK CLOUDS") != Stem("dark cloud") {
		t.Fatalf("multi-word stems differ")
	}
}

func TestTaxonomyIsAllowed(t *testing.T) {
	tax := colorTaxonomy()
	if !tax.IsAllowed([]string{"RED", "SUMMER", "HAPPY"}) {
		t.Fatalf("one member per category should be allowed")
	}
	if tax.IsAllowed([]string{"RED", "BLUE"}) {
		t.Fatalf("two colors must not be allowed")
	}
	if !tax.IsAllowed([]string{"RED", "red"}) {
		t.Fatalf("the same member twice is not a conflict")
	}
	if !tax.IsAllowed([]string{"RED", "!BLUE"}) {
		t.Fatalf("anti memes are not category members")
	}
	if c, ok := tax.CategoryOf("green"); !ok || c != "COLOR" {
		t.Fatalf("CategoryOf(green) = %q %v", c, ok)
	}
}

func TestStackIsAllowed(t *testing.T) {
	s := NewStack(colorTaxonomy(), "RED", "SUMMER")
	cases := []struct {
		name      string
		candidate []string
		want      bool
	}{
		{"no memes", nil, true},
		{"same color", []string{"RED"}, true},
		{"conflicting color", []string{"BLUE"}, false},
		{"conflicting season", []string{"WINTER", "HAPPY"}, false},
		{"unrelated", []string{"HAPPY"}, true},
		{"anti of active", []string{"!RED"}, false},
		{"anti of inactive", []string{"!BLUE"}, true},
		{"unique already active", []string{"$RED"}, false},
		{"unique not active", []string{"$HAPPY"}, true},
		{"self contradiction", []string{"HAPPY", "!HAPPY"}, false},
	}
	for _, c := range cases {
		if got := s.IsAllowed(c.candidate); got != c.want {
			t.Fatalf("%s: IsAllowed(%v) = %v, want %v", c.name, c.candidate, got, c.want)
		}
	}
}

func TestStackActiveAntiBlocksCandidate(t *testing.T) {
	s := NewStack(nil, "!DARK")
	if s.IsAllowed([]string{"dark"}) {
		t.Fatalf("active anti meme should block its target")
	}
	if !s.IsAllowed([]string{"LIGHT"}) {
		t.Fatalf("unrelated meme should pass")
	}
}

func TestStackScore(t *testing.T) {
	s := NewStack(colorTaxonomy(), "RED", "RUNNING")
	if got := s.Score([]string{"red", "run", "BLUE"}); got != 2 {
		t.Fatalf("Score = %v, want 2", got)
	}
	if got := s.Score([]string{"!RED"}); got != 0 {
		t.Fatalf("anti memes must not score, got %v", got)
	}
	if got := s.Score(nil); got != 0 {
		t.Fatalf("empty candidate score = %v", got)
	}
}

func TestStackMemes(t *testing.T) {
	s := NewStack(nil, "red", "RED", "!dark")
	got := s.Memes()
	if len(got) != 2 || got[0] != "RED" || got[1] != "!DARK" {
		t.Fatalf("Memes = %v", got)
	}
}

func TestIsometrySources(t *testing.T) {
	iso := NewIsometry("A", "!B")
	iso.Add("C")
	if src := iso.Sources(); len(src) != 2 || src[0] != "A" || src[1] != "C" {
		t.Fatalf("Sources = %v", src)
	}
	if !iso.Has("a") || iso.Has("B") {
		t.Fatalf("Has mismatch")
	}
}
