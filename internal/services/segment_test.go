package services

import (
	"context"
	"testing"

	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/realtime"
)

func TestSegmentDubbingFlow(t *testing.T) {
	s := newStack(t, sampleLibrary(t))
	ctx := context.Background()
	chain := startChain(t, s, "")

	res, err := s.fab.FabricateNext(ctx, chain.ID, t0)
	if err != nil || res.Outcome != OutcomeCrafted {
		t.Fatalf("FabricateNext = %+v, %v", res, err)
	}
	id := res.Segment.ID

	if err := s.segments.MarkDubbed(ctx, id, " "); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("blank storage key: want validation, got %v", err)
	}
	if err := s.segments.MarkDubbed(ctx, id, "chains/x/0.ogg"); err == nil {
		t.Fatalf("CRAFTED -> DUBBED accepted without DUBBING")
	}
	if err := s.segments.MarkDubbing(ctx, id); err != nil {
		t.Fatalf("MarkDubbing: %v", err)
	}
	if err := s.segments.MarkDubbed(ctx, id, "chains/x/0.ogg"); err != nil {
		t.Fatalf("MarkDubbed: %v", err)
	}
	if err := s.segments.MarkDubbed(ctx, id, "chains/x/0.ogg"); err != nil {
		t.Fatalf("repeat MarkDubbed: %v", err)
	}

	seg, err := s.segments.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if seg.State != types.SegmentStateDubbed || seg.StorageKey != "chains/x/0.ogg" {
		t.Fatalf("segment = %+v", seg)
	}
	if got := eventsOf(s.bus, realtime.EventSegmentDubbed); len(got) != 1 || got[0].SegmentID != id {
		t.Fatalf("dubbed events = %+v", got)
	}

	last, err := s.segments.GetLast(ctx, chain.ID)
	if err != nil || last.ID != id {
		t.Fatalf("GetLast = %+v, %v", last, err)
	}
}
