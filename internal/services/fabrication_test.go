package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/content"
	dataagg "github.com/yungbote/fabricator/internal/data/aggregates"
	"github.com/yungbote/fabricator/internal/data/repos"
	"github.com/yungbote/fabricator/internal/data/repos/testutil"
	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/lifecycle"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
	"github.com/yungbote/fabricator/internal/realtime"
	"github.com/yungbote/fabricator/internal/realtime/bus"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stack struct {
	db       *gorm.DB
	repos    repos.Set
	bus      *bus.MemoryBus
	chains   ChainService
	segments SegmentService
	fab      FabricationService
}

func newStack(t *testing.T, lib *content.Library) stack {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	base := dataagg.BaseDeps{DB: db, Log: log}
	cfg := lifecycle.Config{PreviewLengthMax: time.Hour}

	chainAgg := dataagg.NewChainAggregate(dataagg.ChainAggregateDeps{
		Base: base, Lifecycle: cfg, Chains: set.Chains, Segments: set.Segments, Craft: set.Craft,
	})
	segAgg := dataagg.NewSegmentAggregate(dataagg.SegmentAggregateDeps{
		Base: base, Chains: set.Chains, Segments: set.Segments, Craft: set.Craft,
	})
	b := bus.NewMemoryBus()
	chains := NewChainService(log, set, chainAgg, cfg, b, nil)
	segments := NewSegmentService(log, set, segAgg, b)
	fab := NewFabricationService(FabricationDeps{
		Log:      log,
		Repos:    set,
		Chains:   chains,
		Segments: segments,
		Content:  NewLibraryContent(lib),
	})
	return stack{db: db, repos: set, bus: b, chains: chains, segments: segments, fab: fab}
}

func sampleLibrary(t *testing.T) *content.Library {
	t.Helper()
	lib, err := content.SampleLibrary()
	if err != nil {
		t.Fatalf("SampleLibrary: %v", err)
	}
	return lib
}

func startChain(t *testing.T, s stack, config string) *types.Chain {
	t.Helper()
	ctx := context.Background()
	c, err := s.chains.Create(ctx, CreateChainInput{
		AccountID:  uuid.New(),
		TemplateID: uuid.New(),
		Name:       "lobby",
		Config:     []byte(config),
		Now:        t0,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, to := range []types.ChainState{types.ChainStateReady, types.ChainStateFabricate} {
		if c, err = s.chains.UpdateState(ctx, c.ID, to, t0); err != nil {
			t.Fatalf("UpdateState %s: %v", to, err)
		}
	}
	return c
}

func eventsOf(b *bus.MemoryBus, t realtime.EventType) []realtime.Event {
	var out []realtime.Event
	for _, ev := range b.Published() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestFabricateNextFillsBufferThenWaits(t *testing.T) {
	s := newStack(t, sampleLibrary(t))
	ctx := context.Background()
	chain := startChain(t, s, "buffer_ahead_seconds: 10\n")

	first, err := s.fab.FabricateNext(ctx, chain.ID, t0)
	if err != nil {
		t.Fatalf("FabricateNext #1: %v", err)
	}
	if first.Outcome != OutcomeCrafted || first.Segment.Offset != 0 || first.Segment.Type != types.SegmentTypeInitial {
		t.Fatalf("first result = %+v", first)
	}
	if first.Picks == 0 {
		t.Fatalf("first segment has no picks")
	}

	second, err := s.fab.FabricateNext(ctx, chain.ID, t0)
	if err != nil {
		t.Fatalf("FabricateNext #2: %v", err)
	}
	if second.Outcome != OutcomeCrafted || second.Segment.Offset != 1 {
		t.Fatalf("second result = %+v", second)
	}
	if !second.Segment.BeginAt.Equal(*first.Segment.EndAt) {
		t.Fatalf("segment 1 begins %v, want end of segment 0 %v", second.Segment.BeginAt, *first.Segment.EndAt)
	}

	third, err := s.fab.FabricateNext(ctx, chain.ID, t0)
	if err != nil {
		t.Fatalf("FabricateNext #3: %v", err)
	}
	if third.Outcome != OutcomeAhead {
		t.Fatalf("third result = %+v, want ahead of buffer", third.Outcome)
	}

	stored, err := s.segments.List(ctx, chain.ID, 0, 0)
	if err != nil || len(stored) != 2 {
		t.Fatalf("stored segments = %d, %v", len(stored), err)
	}
	for _, seg := range stored {
		if seg.State != types.SegmentStateCrafted {
			t.Fatalf("segment %d state = %s", seg.Offset, seg.State)
		}
	}
	if got := eventsOf(s.bus, realtime.EventSegmentCrafted); len(got) != 2 {
		t.Fatalf("crafted events = %d", len(got))
	}
}

func TestFabricateNextFailsChainWithoutMainProgram(t *testing.T) {
	lib := sampleLibrary(t)
	empty := &content.Library{Template: lib.Template, Snapshot: content.NewSnapshot()}
	s := newStack(t, empty)
	ctx := context.Background()
	chain := startChain(t, s, "")

	res, err := s.fab.FabricateNext(ctx, chain.ID, t0)
	if err != nil {
		t.Fatalf("FabricateNext: %v", err)
	}
	if res.Outcome != OutcomeFailed || !res.Done() {
		t.Fatalf("result = %+v", res)
	}
	seg, err := s.segments.Get(ctx, res.Segment.ID)
	if err != nil || seg.State != types.SegmentStateFailed {
		t.Fatalf("segment = %+v, %v", seg, err)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if picks, _ := s.repos.Craft.ListPicks(dbc, []uuid.UUID{seg.ID}); len(picks) != 0 {
		t.Fatalf("failed segment kept %d picks", len(picks))
	}
	if msgs, _ := s.repos.Craft.ListMessages(dbc, []uuid.UUID{seg.ID}); len(msgs) == 0 {
		t.Fatalf("failed segment has no error message")
	}
	c, _ := s.chains.Get(ctx, chain.ID)
	if c.State != types.ChainStateFailed {
		t.Fatalf("chain state = %s, want FAILED", c.State)
	}
	if len(eventsOf(s.bus, realtime.EventSegmentFailed)) != 1 || len(eventsOf(s.bus, realtime.EventChainFailed)) != 1 {
		t.Fatalf("events = %+v", s.bus.Published())
	}

	again, err := s.fab.FabricateNext(ctx, chain.ID, t0)
	if err != nil || again.Outcome != OutcomeFailed {
		t.Fatalf("tick on failed chain = %+v, %v", again, err)
	}
}

func TestRecoverStaleReplansAndResumes(t *testing.T) {
	s := newStack(t, sampleLibrary(t))
	ctx := context.Background()
	chain := testutil.SeedChain(t, ctx, s.db, types.ChainStateFabricate, t0)
	seg := testutil.SeedSegment(t, ctx, s.db, chain.ID, 0, types.SegmentStateCrafting, t0, 0)

	n, err := s.fab.RecoverStale(ctx, time.Minute, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("RecoverStale = %d, %v", n, err)
	}
	got, _ := s.segments.Get(ctx, seg.ID)
	if got.State != types.SegmentStatePlanned {
		t.Fatalf("state after recovery = %s", got.State)
	}

	res, err := s.fab.FabricateNext(ctx, chain.ID, t0)
	if err != nil {
		t.Fatalf("FabricateNext: %v", err)
	}
	if res.Outcome != OutcomeCrafted || res.Segment.ID != seg.ID {
		t.Fatalf("resume result = %+v", res)
	}

	if n, err := s.fab.RecoverStale(ctx, time.Minute, time.Now().Add(time.Hour)); err != nil || n != 0 {
		t.Fatalf("second RecoverStale = %d, %v", n, err)
	}
}

func TestFabricateNextIsDeterministicPerSegment(t *testing.T) {
	a := SegmentSeed(uuid.MustParse("00000000-0000-0000-0000-000000000001"), 4)
	b := SegmentSeed(uuid.MustParse("00000000-0000-0000-0000-000000000001"), 4)
	c := SegmentSeed(uuid.MustParse("00000000-0000-0000-0000-000000000001"), 5)
	if a != b {
		t.Fatalf("same segment, different seeds")
	}
	if a == c {
		t.Fatalf("adjacent offsets share a seed")
	}
}

func TestFabricateNextOnInactiveChain(t *testing.T) {
	s := newStack(t, sampleLibrary(t))
	ctx := context.Background()
	chain := testutil.SeedChain(t, ctx, s.db, types.ChainStateReady, t0)

	res, err := s.fab.FabricateNext(ctx, chain.ID, t0)
	if err != nil || res.Outcome != OutcomeInactive {
		t.Fatalf("result = %+v, %v", res, err)
	}
	if _, err := s.fab.FabricateNext(ctx, uuid.New(), t0); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown chain: want not found, got %v", err)
	}
}

// claimingSegments lets another worker claim the PLANNED segment between the
// read of the last segment and the caller's own claim.
type claimingSegments struct {
	SegmentService
}

func (c claimingSegments) GetLast(ctx context.Context, chainID uuid.UUID) (*types.Segment, error) {
	last, err := c.SegmentService.GetLast(ctx, chainID)
	if err != nil || last == nil || last.State != types.SegmentStatePlanned {
		return last, err
	}
	if err := c.SegmentService.Claim(ctx, last.ID); err != nil {
		return nil, err
	}
	return last, nil
}

func TestFabricateNextLosesRaceForPlannedSegment(t *testing.T) {
	s := newStack(t, sampleLibrary(t))
	ctx := context.Background()
	chain := testutil.SeedChain(t, ctx, s.db, types.ChainStateFabricate, t0)
	seg := testutil.SeedSegment(t, ctx, s.db, chain.ID, 0, types.SegmentStatePlanned, t0, 0)

	fab := NewFabricationService(FabricationDeps{
		Log:      testutil.Logger(t),
		Repos:    s.repos,
		Chains:   s.chains,
		Segments: claimingSegments{SegmentService: s.segments},
		Content:  NewLibraryContent(sampleLibrary(t)),
	})

	res, err := fab.FabricateNext(ctx, chain.ID, t0)
	if err != nil {
		t.Fatalf("FabricateNext: %v", err)
	}
	if res.Outcome != OutcomeLostRace {
		t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeLostRace)
	}
	got, err := s.segments.Get(ctx, seg.ID)
	if err != nil || got.State != types.SegmentStateCrafting {
		t.Fatalf("segment after lost race = %+v, %v", got, err)
	}
	picks, err := s.repos.Craft.ListPicks(dbctx.Context{Ctx: ctx}, []uuid.UUID{seg.ID})
	if err != nil || len(picks) != 0 {
		t.Fatalf("loser wrote craft output: %d picks, %v", len(picks), err)
	}
}
