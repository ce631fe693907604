package content

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/fabricator/internal/domain/content"
)

func TestSnapshotPutAndLookups(t *testing.T) {
	s := NewSnapshot()
	pid := uuid.New()
	seq := uuid.New()
	err := s.PutAll(
		&types.Program{ID: pid, Name: "Main", Type: types.ProgramTypeMain},
		&types.ProgramMeme{ID: uuid.New(), ProgramID: pid, Name: "RED"},
		&types.ProgramSequence{ID: seq, ProgramID: pid, Total: 16},
		&types.ProgramSequenceBinding{ID: uuid.New(), ProgramID: pid, ProgramSequenceID: seq, Offset: 2},
		&types.ProgramSequenceBinding{ID: uuid.New(), ProgramID: pid, ProgramSequenceID: seq, Offset: 0},
		&types.ProgramSequenceChord{ID: uuid.New(), ProgramID: pid, ProgramSequenceID: seq, Name: "G", Position: 8},
		&types.ProgramSequenceChord{ID: uuid.New(), ProgramID: pid, ProgramSequenceID: seq, Name: "C", Position: 0},
		&types.TemplateBinding{ID: uuid.New(), Type: types.TemplateBindingProgram, TargetID: pid},
	)
	if err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	if s.Size() != 8 {
		t.Fatalf("size = %d, want 8", s.Size())
	}
	if p, ok := s.Program(pid); !ok || p.Name != "Main" {
		t.Fatalf("program lookup failed: %v %v", p, ok)
	}
	if got := s.ProgramsOfType(types.ProgramTypeMain); len(got) != 1 {
		t.Fatalf("ProgramsOfType = %d programs, want 1", len(got))
	}
	if got := s.ProgramsOfType(types.ProgramTypeRhythm); len(got) != 0 {
		t.Fatalf("unexpected rhythm programs: %d", len(got))
	}
	if memes := s.ProgramMemes(pid); len(memes) != 1 || memes[0] != "RED" {
		t.Fatalf("memes = %v", memes)
	}
	bindings := s.Bindings(pid)
	if len(bindings) != 2 || bindings[0].Offset != 0 || bindings[1].Offset != 2 {
		t.Fatalf("bindings not ordered by offset: %+v", bindings)
	}
	if next, ok := s.NextBindingOffset(pid, 0); !ok || next != 2 {
		t.Fatalf("next offset = %d %v, want 2 true", next, ok)
	}
	if _, ok := s.NextBindingOffset(pid, 2); ok {
		t.Fatalf("expected no binding after offset 2")
	}
	chords := s.Chords(seq)
	if len(chords) != 2 || chords[0].Name != "C" {
		t.Fatalf("chords not ordered by position: %+v", chords)
	}
	if !s.IsBound(pid) {
		t.Fatalf("program should be bound")
	}
}

func TestSnapshotRejectsMissingID(t *testing.T) {
	s := NewSnapshot()
	if err := s.Put(&types.Program{Name: "no id"}); err == nil {
		t.Fatalf("expected error for missing id")
	}
	if err := s.Put(nil); err == nil {
		t.Fatalf("expected error for nil entity")
	}
}

func TestSnapshotReplacesWithoutDuplicatingOrder(t *testing.T) {
	s := NewSnapshot()
	id := uuid.New()
	_ = s.Put(&types.Instrument{ID: id, Name: "a", Type: types.InstrumentTypeBass})
	_ = s.Put(&types.Instrument{ID: id, Name: "b", Type: types.InstrumentTypeBass})
	got := s.InstrumentsOfType(types.InstrumentTypeBass)
	if len(got) != 1 || got[0].Name != "b" {
		t.Fatalf("instruments = %+v", got)
	}
}
