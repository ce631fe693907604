package aggregates_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fabricator/internal/data/aggregates"
	aggtest "github.com/yungbote/fabricator/internal/data/aggregates/testutil"
	"github.com/yungbote/fabricator/internal/data/repos"
	"github.com/yungbote/fabricator/internal/data/repos/testutil"
	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type segmentFixture struct {
	db    *gorm.DB
	repos repos.Set
	hooks *aggtest.HooksRecorder
	agg   domainagg.SegmentAggregate
	dbc   dbctx.Context
}

func newSegmentFixture(t *testing.T, runner aggregates.TxRunner) segmentFixture {
	t.Helper()
	db := testutil.DB(t)
	set := repos.NewSet(db, testutil.Logger(t))
	hooks := &aggtest.HooksRecorder{}
	if r, ok := runner.(*aggtest.InjectedTxRunner); ok && r.DB == nil {
		r.DB = db
	}
	agg := aggregates.NewSegmentAggregate(aggregates.SegmentAggregateDeps{
		Base:     aggregates.BaseDeps{DB: db, Log: testutil.Logger(t), Runner: runner, Hooks: hooks},
		Chains:   set.Chains,
		Segments: set.Segments,
		Craft:    set.Craft,
	})
	return segmentFixture{db: db, repos: set, hooks: hooks, agg: agg, dbc: dbctx.Context{Ctx: context.Background()}}
}

func sampleOutput(seg *types.Segment) *types.CraftOutput {
	choice := &types.SegmentChoice{ID: uuid.New(), SegmentID: seg.ID, ProgramType: "Main", DeltaIn: -1, DeltaOut: -1}
	arr := &types.SegmentChoiceArrangement{ID: uuid.New(), SegmentID: seg.ID, SegmentChoiceID: choice.ID}
	return &types.CraftOutput{
		Segment:      seg,
		Memes:        []*types.SegmentMeme{{SegmentID: seg.ID, Name: "RED"}},
		Chords:       []*types.SegmentChord{{SegmentID: seg.ID, Name: "C", Position: 0}},
		Choices:      []*types.SegmentChoice{choice},
		Arrangements: []*types.SegmentChoiceArrangement{arr},
		Picks: []*types.SegmentChoiceArrangementPick{{
			SegmentID:                  seg.ID,
			SegmentChoiceID:            choice.ID,
			SegmentChoiceArrangementID: arr.ID,
			InstrumentAudioID:          uuid.New(),
			LengthMicros:               1000,
			Amplitude:                  1,
		}},
		Messages: []*types.SegmentMessage{{SegmentID: seg.ID, Type: types.MessageTypeMissing, Body: "no pad"}},
	}
}

func TestPlanIsExclusivePerOffset(t *testing.T) {
	f := newSegmentFixture(t, nil)
	ctx := context.Background()
	chain := testutil.SeedChain(t, ctx, f.db, types.ChainStateFabricate, t0)

	first, err := f.agg.Plan(ctx, &types.Segment{ChainID: chain.ID, Offset: 0, BeginAt: t0})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if first.State != types.SegmentStatePlanned || first.Type != types.SegmentTypePending {
		t.Fatalf("planned segment = %s/%s", first.State, first.Type)
	}

	_, err = f.agg.Plan(ctx, &types.Segment{ChainID: chain.ID, Offset: 0, BeginAt: t0})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("second Plan at offset 0: want conflict, got %v", err)
	}
	if len(f.hooks.Conflicts) != 1 {
		t.Fatalf("conflict hooks = %v", f.hooks.Conflicts)
	}
}

func TestPlanPreconditions(t *testing.T) {
	f := newSegmentFixture(t, nil)
	ctx := context.Background()
	ready := testutil.SeedChain(t, ctx, f.db, types.ChainStateReady, t0)
	running := testutil.SeedChain(t, ctx, f.db, types.ChainStateFabricate, t0)

	tests := []struct {
		name string
		seg  *types.Segment
		want domainagg.ErrorCode
	}{
		{"nil template", nil, domainagg.CodeValidation},
		{"chain not fabricating", &types.Segment{ChainID: ready.ID, BeginAt: t0}, domainagg.CodePreconditionFailed},
		{"missing chain", &types.Segment{ChainID: uuid.New(), BeginAt: t0}, domainagg.CodeNotFound},
		{"gap in offsets", &types.Segment{ChainID: running.ID, Offset: 3, BeginAt: t0}, domainagg.CodePreconditionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.agg.Plan(ctx, tt.seg); !domainagg.IsCode(err, tt.want) {
				t.Fatalf("want %s, got %v", tt.want, err)
			}
		})
	}
}

func TestTransitionFollowsStateMachine(t *testing.T) {
	f := newSegmentFixture(t, nil)
	ctx := context.Background()
	chain := testutil.SeedChain(t, ctx, f.db, types.ChainStateFabricate, t0)
	seg := testutil.SeedSegment(t, ctx, f.db, chain.ID, 0, types.SegmentStatePlanned, t0, 0)

	res, err := f.agg.Transition(ctx, domainagg.TransitionSegmentInput{SegmentID: seg.ID, To: types.SegmentStateCrafting})
	if err != nil || !res.Changed || res.From != types.SegmentStatePlanned {
		t.Fatalf("PLANNED->CRAFTING = %+v, %v", res, err)
	}

	_, err = f.agg.Transition(ctx, domainagg.TransitionSegmentInput{SegmentID: seg.ID, To: types.SegmentStateDubbed})
	if !domainagg.IsCode(err, domainagg.CodePrivilege) {
		t.Fatalf("CRAFTING->DUBBED: want privilege error, got %v", err)
	}
	got, err := f.repos.Segments.GetByID(f.dbc, seg.ID)
	if err != nil || got.State != types.SegmentStateCrafting {
		t.Fatalf("state after rejected transition = %v, %v", got, err)
	}

	res, err = f.agg.Transition(ctx, domainagg.TransitionSegmentInput{SegmentID: seg.ID, To: types.SegmentStateCrafting})
	if err != nil || res.Changed {
		t.Fatalf("self transition = %+v, %v", res, err)
	}
}

func TestTransitionFromExpectedState(t *testing.T) {
	f := newSegmentFixture(t, nil)
	ctx := context.Background()
	chain := testutil.SeedChain(t, ctx, f.db, types.ChainStateFabricate, t0)
	seg := testutil.SeedSegment(t, ctx, f.db, chain.ID, 0, types.SegmentStatePlanned, t0, 0)

	claim := domainagg.TransitionSegmentInput{
		SegmentID: seg.ID,
		To:        types.SegmentStateCrafting,
		From:      []types.SegmentState{types.SegmentStatePlanned},
	}
	res, err := f.agg.Transition(ctx, claim)
	if err != nil || !res.Changed {
		t.Fatalf("first claim = %+v, %v", res, err)
	}

	// A second claim against the same PLANNED read must lose, not no-op.
	res, err = f.agg.Transition(ctx, claim)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("second claim: want conflict, got %+v, %v", res, err)
	}
	if res.Changed {
		t.Fatalf("second claim reported a change")
	}
}

func TestCommitCraftWritesOutputAndState(t *testing.T) {
	f := newSegmentFixture(t, nil)
	ctx := context.Background()
	chain := testutil.SeedChain(t, ctx, f.db, types.ChainStateFabricate, t0)
	seg := testutil.SeedSegment(t, ctx, f.db, chain.ID, 0, types.SegmentStateCrafting, t0, 0)

	end := t0.Add(8 * time.Second)
	seg.EndAt = &end
	seg.Type = types.SegmentTypeInitial
	seg.Key = "C Major"
	seg.Total = 16
	seg.Tempo = 120
	if err := f.agg.CommitCraft(ctx, sampleOutput(seg)); err != nil {
		t.Fatalf("CommitCraft: %v", err)
	}

	got, err := f.repos.Segments.GetByID(f.dbc, seg.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.State != types.SegmentStateCrafted || got.Type != types.SegmentTypeInitial || got.Key != "C Major" || got.Total != 16 {
		t.Fatalf("committed segment = %+v", got)
	}
	if got.EndAt == nil || !got.EndAt.Equal(end) {
		t.Fatalf("end_at = %v, want %v", got.EndAt, end)
	}
	picks, err := f.repos.Craft.ListPicks(f.dbc, []uuid.UUID{seg.ID})
	if err != nil || len(picks) != 1 {
		t.Fatalf("picks = %v, %v", picks, err)
	}

	err = f.agg.CommitCraft(ctx, sampleOutput(seg))
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("second commit: want precondition failure, got %v", err)
	}
}

func TestRevertKeepsMessages(t *testing.T) {
	f := newSegmentFixture(t, nil)
	ctx := context.Background()
	chain := testutil.SeedChain(t, ctx, f.db, types.ChainStateFabricate, t0)
	seg := testutil.SeedSegment(t, ctx, f.db, chain.ID, 0, types.SegmentStateCrafting, t0, 0)
	if err := f.repos.Craft.Insert(f.dbc, sampleOutput(seg)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	res, err := f.agg.Revert(ctx, domainagg.RevertSegmentInput{SegmentID: seg.ID, ToPlanned: true, Reason: "stale"})
	if err != nil || res.State != types.SegmentStatePlanned {
		t.Fatalf("Revert = %+v, %v", res, err)
	}
	ids := []uuid.UUID{seg.ID}
	if picks, _ := f.repos.Craft.ListPicks(f.dbc, ids); len(picks) != 0 {
		t.Fatalf("picks survived revert: %d", len(picks))
	}
	if choices, _ := f.repos.Craft.ListChoices(f.dbc, ids); len(choices) != 0 {
		t.Fatalf("choices survived revert: %d", len(choices))
	}
	if memes, _ := f.repos.Craft.ListMemes(f.dbc, ids); len(memes) != 0 {
		t.Fatalf("memes survived revert: %d", len(memes))
	}
	msgs, err := f.repos.Craft.ListMessages(f.dbc, ids)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("messages after revert = %d, %v; want original plus reason", len(msgs), err)
	}

	dubbed := testutil.SeedSegment(t, ctx, f.db, chain.ID, 1, types.SegmentStateDubbed, t0, time.Second)
	_, err = f.agg.Revert(ctx, domainagg.RevertSegmentInput{SegmentID: dubbed.ID})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("revert DUBBED: want precondition failure, got %v", err)
	}
}

func TestFailDropsPartialOutputAtomically(t *testing.T) {
	runner := &aggtest.InjectedTxRunner{FailCommit: errors.New("commit lost")}
	f := newSegmentFixture(t, runner)
	ctx := context.Background()
	chain := testutil.SeedChain(t, ctx, f.db, types.ChainStateFabricate, t0)
	seg := testutil.SeedSegment(t, ctx, f.db, chain.ID, 0, types.SegmentStateCrafting, t0, 0)
	if err := f.repos.Craft.Insert(f.dbc, sampleOutput(seg)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	fail := domainagg.FailSegmentInput{
		SegmentID: seg.ID,
		Messages:  []*types.SegmentMessage{{Type: types.MessageTypeError, Body: "no main program"}},
	}

	if err := f.agg.Fail(ctx, fail); err == nil {
		t.Fatalf("expected injected commit failure")
	}
	if runner.RollbackCalls != 1 {
		t.Fatalf("rollbacks = %d", runner.RollbackCalls)
	}
	got, _ := f.repos.Segments.GetByID(f.dbc, seg.ID)
	if got.State != types.SegmentStateCrafting {
		t.Fatalf("state after rolled back fail = %s", got.State)
	}
	if picks, _ := f.repos.Craft.ListPicks(f.dbc, []uuid.UUID{seg.ID}); len(picks) != 1 {
		t.Fatalf("rolled back fail must keep picks, got %d", len(picks))
	}

	runner.FailCommit = nil
	if err := f.agg.Fail(ctx, fail); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got, _ = f.repos.Segments.GetByID(f.dbc, seg.ID)
	if got.State != types.SegmentStateFailed {
		t.Fatalf("state = %s, want FAILED", got.State)
	}
	if picks, _ := f.repos.Craft.ListPicks(f.dbc, []uuid.UUID{seg.ID}); len(picks) != 0 {
		t.Fatalf("failed segment kept %d picks", len(picks))
	}
	msgs, _ := f.repos.Craft.ListMessages(f.dbc, []uuid.UUID{seg.ID})
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want craft message plus failure", len(msgs))
	}
}
