package notepicker

import (
	"math/rand"
	"testing"

	"github.com/yungbote/fabricator/internal/music"
)

func notes(t *testing.T, csv string) []music.Note {
	t.Helper()
	out, err := music.ParseNotes(csv)
	if err != nil {
		t.Fatalf("ParseNotes(%q): %v", csv, err)
	}
	return out
}

func names(ns []music.Note) string { return music.JoinNotes(ns, music.Sharp) }

func TestPickMapsIntoVoicingOctave(t *testing.T) {
	p := New(music.NoteRange{}, notes(t, "C4, E4, G4"), false, rand.New(rand.NewSource(1)))
	p.Pick(notes(t, "C2, G1"))
	if got := names(p.Picked()); got != "G4,C4" {
		t.Fatalf("Picked = %s", got)
	}
	if got := p.Picked(); len(got) != 2 {
		t.Fatalf("every source note yields one output, got %d", len(got))
	}
}

func TestPickAscendingOrderAndConsumption(t *testing.T) {
	p := New(music.NoteRange{}, notes(t, "C4, E4, G4"), false, rand.New(rand.NewSource(1)))
	p.Pick(notes(t, "C4, C4, C4"))
	if got := names(p.Picked()); got != "C4,E4,G4" {
		t.Fatalf("Picked = %s, want each voicing note used once", got)
	}
}

func TestPickExhaustedPoolYieldsAtonal(t *testing.T) {
	p := New(music.NoteRange{}, notes(t, "C4"), false, nil)
	p.Pick(notes(t, "C4, D4"))
	got := p.Picked()
	if len(got) != 2 || !got[1].IsAtonal() {
		t.Fatalf("Picked = %s", names(got))
	}
}

func TestPickEmptySourceYieldsPlaceholder(t *testing.T) {
	p := New(music.NoteRange{}, notes(t, "C4, E4"), false, nil)
	p.Pick(nil)
	got := p.Picked()
	if len(got) != 1 || !got[0].IsAtonal() {
		t.Fatalf("Picked = %s, want single atonal placeholder", names(got))
	}
}

func TestPickEmptyVoicing(t *testing.T) {
	p := New(music.NoteRange{}, nil, true, nil)
	p.Pick(notes(t, "C4, E4, X"))
	for _, n := range p.Picked() {
		if !n.IsAtonal() {
			t.Fatalf("expected only atonal notes, got %s", names(p.Picked()))
		}
	}
	if len(p.Picked()) != 3 {
		t.Fatalf("every source note yields one output")
	}
}

func TestAtonalSourceIsSeeded(t *testing.T) {
	run := func() string {
		p := New(music.NoteRange{}, notes(t, "C4, E4, G4, B4"), false, rand.New(rand.NewSource(99)))
		p.Pick(notes(t, "X, X"))
		return names(p.Picked())
	}
	first := run()
	for i := 0; i < 5; i++ {
		if got := run(); got != first {
			t.Fatalf("run %d = %s, want %s", i, got, first)
		}
	}
}

func TestSeekInversionsStaysInsideRange(t *testing.T) {
	target := music.RangeOf(notes(t, "C4, E4")...)
	voicing := notes(t, "C4, E4, G4")

	plain := New(target, voicing, false, nil)
	plain.Pick(notes(t, "G4"))
	if got := names(plain.Picked()); got != "G4" {
		t.Fatalf("without inversions = %s, want G4", got)
	}

	seek := New(target, voicing, true, nil)
	seek.Pick(notes(t, "G4"))
	if got := names(seek.Picked()); got != "E4" {
		t.Fatalf("with inversions = %s, want E4", got)
	}
}

func TestSeekInversionsLowSide(t *testing.T) {
	target := music.RangeOf(notes(t, "E4, A4")...)
	seek := New(target, notes(t, "C4, F4, A4"), true, nil)
	seek.Pick(notes(t, "C4"))
	if got := names(seek.Picked()); got != "F4" {
		t.Fatalf("with inversions = %s, want F4", got)
	}
}

func TestTargetRangeGrows(t *testing.T) {
	p := New(music.NoteRange{}, notes(t, "C3, E3, G3"), false, nil)
	p.Pick(notes(t, "C3, G3"))
	low, _ := p.TargetRange().Low()
	high, _ := p.TargetRange().High()
	if low.String() != "C3" || high.String() != "G3" {
		t.Fatalf("range = %s..%s", low, high)
	}
}
