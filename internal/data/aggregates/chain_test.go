package aggregates_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fabricator/internal/data/aggregates"
	"github.com/yungbote/fabricator/internal/data/repos"
	"github.com/yungbote/fabricator/internal/data/repos/testutil"
	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/lifecycle"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
)

func newChainAggregate(t *testing.T) (domainagg.ChainAggregate, repos.Set, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	set := repos.NewSet(db, testutil.Logger(t))
	agg := aggregates.NewChainAggregate(aggregates.ChainAggregateDeps{
		Base: aggregates.BaseDeps{DB: db, Log: testutil.Logger(t)},
		Lifecycle: lifecycle.Config{
			StartLead:        5 * time.Second,
			PreviewLengthMax: time.Hour,
		},
		Chains:   set.Chains,
		Segments: set.Segments,
		Craft:    set.Craft,
	})
	return agg, set, db
}

func TestChainTransitionRestartsClock(t *testing.T) {
	agg, _, db := newChainAggregate(t)
	ctx := context.Background()
	c := testutil.SeedChain(t, ctx, db, types.ChainStateReady, t0)

	now := t0.Add(time.Minute)
	got, err := agg.Transition(ctx, domainagg.TransitionChainInput{ChainID: c.ID, To: types.ChainStateFabricate, Now: now})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.State != types.ChainStateFabricate || !got.StartAt.Equal(now.Add(5*time.Second)) {
		t.Fatalf("chain = %s start %v", got.State, got.StartAt)
	}

	_, err = agg.Transition(ctx, domainagg.TransitionChainInput{ChainID: c.ID, To: types.ChainStateDraft, Now: now})
	if !domainagg.IsCode(err, domainagg.CodePrivilege) {
		t.Fatalf("FABRICATE->DRAFT: want privilege error, got %v", err)
	}
}

func TestChainReviveMovesEmbedKey(t *testing.T) {
	agg, set, db := newChainAggregate(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	c := testutil.SeedChain(t, ctx, db, types.ChainStateFabricate, t0)
	key := "lobby"
	if err := set.Chains.UpdateFields(dbc, c.ID, map[string]interface{}{"embed_key": key}); err != nil {
		t.Fatalf("set embed key: %v", err)
	}

	fresh, err := agg.Revive(ctx, domainagg.ReviveChainInput{ChainID: c.ID, Reason: "stalled", Now: t0})
	if err != nil {
		t.Fatalf("Revive: %v", err)
	}
	if fresh.ID == c.ID || fresh.State != types.ChainStateFabricate || fresh.TemplateID != c.TemplateID {
		t.Fatalf("revived chain = %+v", fresh)
	}
	byKey, err := set.Chains.GetByEmbedKey(dbc, key)
	if err != nil || byKey.ID != fresh.ID {
		t.Fatalf("embed key resolves to %v, %v; want revived chain", byKey, err)
	}
	old, _ := set.Chains.GetByID(dbc, c.ID)
	if old.State != types.ChainStateFailed || old.EmbedKey != nil {
		t.Fatalf("prior chain = %s key %v", old.State, old.EmbedKey)
	}

	draft := testutil.SeedChain(t, ctx, db, types.ChainStateDraft, t0)
	if _, err := agg.Revive(ctx, domainagg.ReviveChainInput{ChainID: draft.ID}); !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("revive DRAFT: want precondition failure, got %v", err)
	}
}

func TestChainDestroyCascades(t *testing.T) {
	agg, set, db := newChainAggregate(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	c := testutil.SeedChain(t, ctx, db, types.ChainStateFabricate, t0)
	seg := testutil.SeedSegment(t, ctx, db, c.ID, 0, types.SegmentStateCrafting, t0, 0)
	if err := set.Craft.Insert(dbc, sampleOutput(seg)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := agg.Destroy(ctx, c.ID); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := set.Chains.GetByID(dbc, c.ID); err == nil {
		t.Fatalf("chain still present")
	}
	if last, _ := set.Segments.GetLast(dbc, c.ID); last != nil {
		t.Fatalf("segment still present")
	}
	if msgs, _ := set.Craft.ListMessages(dbc, []uuid.UUID{seg.ID}); len(msgs) != 0 {
		t.Fatalf("messages still present: %d", len(msgs))
	}
	if err := agg.Destroy(ctx, c.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("second Destroy: want not found, got %v", err)
	}
}
