package retrospective

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/fabricator/internal/domain/content"
	"github.com/yungbote/fabricator/internal/domain/fabrication"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestEmptyRetrospective(t *testing.T) {
	r := New()
	if _, ok := r.Previous(); ok {
		t.Fatalf("expected no previous segment")
	}
	if r.MainRun() != nil {
		t.Fatalf("expected empty main run")
	}
	if _, ok := r.PreviousChoiceOfProgramType(types.ProgramTypeMain); ok {
		t.Fatalf("expected no previous choice")
	}
}

func TestPreviousAndMainRun(t *testing.T) {
	mainID := uuid.New()
	voiceID := uuid.New()
	instID := uuid.New()
	kickChoice := fabrication.SegmentChoice{
		ID:             uuid.New(),
		ProgramType:    string(types.ProgramTypeRhythm),
		ProgramVoiceID: ptr(voiceID),
		InstrumentID:   ptr(instID),
		InstrumentType: string(types.InstrumentTypeDrum),
	}
	r := New(
		Record{Segment: fabrication.Segment{Offset: 2, Type: fabrication.SegmentTypeContinue},
			Choices: []fabrication.SegmentChoice{{ProgramID: ptr(mainID), ProgramType: string(types.ProgramTypeMain)}, kickChoice},
			Memes:   []fabrication.SegmentMeme{{Name: "RED"}},
			Picks:   []fabrication.SegmentChoiceArrangementPick{{SegmentChoiceID: kickChoice.ID}}},
		Record{Segment: fabrication.Segment{Offset: 0, Type: fabrication.SegmentTypeInitial}},
		Record{Segment: fabrication.Segment{Offset: 1, Type: fabrication.SegmentTypeNextMain}},
	)
	prev, ok := r.Previous()
	if !ok || prev.Segment.Offset != 2 {
		t.Fatalf("previous = %+v", prev)
	}
	run := r.MainRun()
	if len(run) != 2 || run[0].Segment.Offset != 1 {
		t.Fatalf("main run = %d records starting at %d", len(run), run[0].Segment.Offset)
	}
	if c, ok := r.PreviousChoiceOfProgramType(types.ProgramTypeMain); !ok || *c.ProgramID != mainID {
		t.Fatalf("main choice = %+v", c)
	}
	if c, ok := r.PreviousChoiceOfVoice(voiceID); !ok || c.ID != kickChoice.ID {
		t.Fatalf("voice choice = %+v", c)
	}
	if got := r.RunChoicesWithVoice(); len(got) != 1 {
		t.Fatalf("run choices = %d", len(got))
	}
	if got := r.PicksByChoice(kickChoice.ID); len(got) != 1 {
		t.Fatalf("picks = %d", len(got))
	}
	if got := r.PreviousChoicesOfProgramType(types.ProgramTypeRhythm); len(got) != 1 {
		t.Fatalf("rhythm choices = %d", len(got))
	}
}
