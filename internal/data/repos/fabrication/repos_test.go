package fabrication

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/data/repos/testutil"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestSegmentRepoOffsetIsExclusive(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewSegmentRepo(db, testutil.Logger(t))
	chain := testutil.SeedChain(t, ctx, db, types.ChainStateFabricate, t0)
	dbc := dbctx.Context{Ctx: ctx}

	first := &types.Segment{ChainID: chain.ID, Offset: 0, State: types.SegmentStatePlanned, Type: types.SegmentTypePending, BeginAt: t0}
	if _, err := repo.Create(dbc, first); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	dup := &types.Segment{ChainID: chain.ID, Offset: 0, State: types.SegmentStatePlanned, Type: types.SegmentTypePending, BeginAt: t0}
	if _, err := repo.Create(dbc, dup); err == nil {
		t.Fatalf("expected unique violation for a second segment at offset 0")
	}
}

func TestSegmentRepoGetLastAndList(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewSegmentRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}
	chain := testutil.SeedChain(t, ctx, db, types.ChainStateFabricate, t0)

	last, err := repo.GetLast(dbc, chain.ID)
	if err != nil || last != nil {
		t.Fatalf("GetLast on empty chain = %v, %v", last, err)
	}
	for i := int64(0); i < 3; i++ {
		testutil.SeedSegment(t, ctx, db, chain.ID, i, types.SegmentStateCrafted, t0.Add(time.Duration(i)*8*time.Second), 8*time.Second)
	}
	last, err = repo.GetLast(dbc, chain.ID)
	if err != nil || last == nil || last.Offset != 2 {
		t.Fatalf("GetLast = %+v, %v; want offset 2", last, err)
	}
	segs, err := repo.ListByChain(dbc, chain.ID, 1, 0)
	if err != nil {
		t.Fatalf("ListByChain: %v", err)
	}
	if len(segs) != 2 || segs[0].Offset != 1 || segs[1].Offset != 2 {
		t.Fatalf("ListByChain offsets = %v", segs)
	}
	got, err := repo.GetByOffset(dbc, chain.ID, 1)
	if err != nil || got.ID != segs[0].ID {
		t.Fatalf("GetByOffset = %+v, %v", got, err)
	}
}

func TestChainRepoEmbedKeyAndState(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewChainRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}

	key := "lobby"
	c, err := repo.Create(dbc, &types.Chain{
		AccountID:  uuid.New(),
		TemplateID: uuid.New(),
		Name:       "lobby",
		Type:       types.ChainTypeProduction,
		State:      types.ChainStateDraft,
		StartAt:    t0,
		EmbedKey:   &key,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByEmbedKey(dbc, " LOBBY ")
	if err != nil || got.ID != c.ID {
		t.Fatalf("GetByEmbedKey = %+v, %v", got, err)
	}
	if err := repo.UpdateFields(dbc, c.ID, map[string]interface{}{"state": types.ChainStateFabricate}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	list, err := repo.ListByState(dbc, []types.ChainState{types.ChainStateFabricate})
	if err != nil || len(list) != 1 || list[0].ID != c.ID {
		t.Fatalf("ListByState = %v, %v", list, err)
	}
	if err := repo.Delete(dbc, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(dbc, c.ID); err == nil {
		t.Fatalf("expected not found after delete")
	}
}

func TestCraftRepoDeleteCraftKeepsMessages(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	repo := NewCraftRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: ctx}
	chain := testutil.SeedChain(t, ctx, db, types.ChainStateFabricate, t0)
	seg := testutil.SeedSegment(t, ctx, db, chain.ID, 0, types.SegmentStateCrafting, t0, 0)

	choice := &types.SegmentChoice{ID: uuid.New(), SegmentID: seg.ID, ProgramType: "Main", DeltaIn: -1, DeltaOut: -1}
	arr := &types.SegmentChoiceArrangement{ID: uuid.New(), SegmentID: seg.ID, SegmentChoiceID: choice.ID}
	out := &types.CraftOutput{
		Segment:      seg,
		Memes:        []*types.SegmentMeme{{SegmentID: seg.ID, Name: "RED"}},
		Chords:       []*types.SegmentChord{{SegmentID: seg.ID, Name: "G", Position: 4}, {SegmentID: seg.ID, Name: "C", Position: 0}},
		Choices:      []*types.SegmentChoice{choice},
		Arrangements: []*types.SegmentChoiceArrangement{arr},
		Picks: []*types.SegmentChoiceArrangementPick{
			{SegmentID: seg.ID, SegmentChoiceID: choice.ID, SegmentChoiceArrangementID: arr.ID, InstrumentAudioID: uuid.New(), StartAtSegmentMicros: 500},
			{SegmentID: seg.ID, SegmentChoiceID: choice.ID, SegmentChoiceArrangementID: arr.ID, InstrumentAudioID: uuid.New(), StartAtSegmentMicros: 0},
		},
		Messages: []*types.SegmentMessage{{SegmentID: seg.ID, Type: types.MessageTypeMissing, Body: "no pad"}},
	}
	if err := repo.Insert(dbc, out); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	chords, err := repo.ListChords(dbc, []uuid.UUID{seg.ID})
	if err != nil || len(chords) != 2 || chords[0].Name != "C" {
		t.Fatalf("ListChords = %v, %v; want ordered by position", chords, err)
	}
	picks, err := repo.ListPicks(dbc, []uuid.UUID{seg.ID})
	if err != nil || len(picks) != 2 || picks[0].StartAtSegmentMicros != 0 {
		t.Fatalf("ListPicks = %v, %v; want ordered by start", picks, err)
	}

	if err := repo.DeleteCraft(dbc, []uuid.UUID{seg.ID}); err != nil {
		t.Fatalf("DeleteCraft: %v", err)
	}
	for name, count := range map[string]func() (int, error){
		"choices": func() (int, error) { l, err := repo.ListChoices(dbc, []uuid.UUID{seg.ID}); return len(l), err },
		"picks":   func() (int, error) { l, err := repo.ListPicks(dbc, []uuid.UUID{seg.ID}); return len(l), err },
		"memes":   func() (int, error) { l, err := repo.ListMemes(dbc, []uuid.UUID{seg.ID}); return len(l), err },
		"chords":  func() (int, error) { l, err := repo.ListChords(dbc, []uuid.UUID{seg.ID}); return len(l), err },
	} {
		n, err := count()
		if err != nil || n != 0 {
			t.Fatalf("%s after DeleteCraft = %d, %v", name, n, err)
		}
	}
	msgs, err := repo.ListMessages(dbc, []uuid.UUID{seg.ID})
	if err != nil || len(msgs) != 1 {
		t.Fatalf("messages after DeleteCraft = %v, %v; want kept", msgs, err)
	}
}
