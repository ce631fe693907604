package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
	"github.com/yungbote/fabricator/internal/realtime"
)

func TestChainCreate(t *testing.T) {
	s := newStack(t, sampleLibrary(t))
	ctx := context.Background()
	base := CreateChainInput{AccountID: uuid.New(), TemplateID: uuid.New(), Name: " radio ", Now: t0}

	tests := []struct {
		name string
		edit func(in *CreateChainInput)
		code domainagg.ErrorCode
	}{
		{"missing account", func(in *CreateChainInput) { in.AccountID = uuid.Nil }, domainagg.CodeValidation},
		{"unknown type", func(in *CreateChainInput) { in.Type = "JAM" }, domainagg.CodeValidation},
		{"bad config", func(in *CreateChainInput) { in.Config = []byte("buffer_ahead_seconds: [") }, domainagg.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.edit(&in)
			if _, err := s.chains.Create(ctx, in); !domainagg.IsCode(err, tt.code) {
				t.Fatalf("Create err = %v, want %s", err, tt.code)
			}
		})
	}

	in := base
	in.EmbedKey = " Lobby-Radio "
	in.Config = []byte("buffer_ahead_seconds: 30\n")
	c, err := s.chains.Create(ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.State != types.ChainStateDraft || c.Name != "radio" || c.Type != types.ChainTypeProduction {
		t.Fatalf("chain = %+v", c)
	}
	if c.EmbedKey == nil || *c.EmbedKey != "lobby-radio" {
		t.Fatalf("embed key = %v", c.EmbedKey)
	}
	var cfg map[string]any
	if err := json.Unmarshal(c.Config, &cfg); err != nil {
		t.Fatalf("stored config is not json: %v", err)
	}
	if cfg["buffer_ahead_seconds"] != float64(30) {
		t.Fatalf("stored config = %v", cfg)
	}

	found, err := s.chains.GetByEmbedKey(ctx, "lobby-radio")
	if err != nil || found.ID != c.ID {
		t.Fatalf("GetByEmbedKey = %+v, %v", found, err)
	}

	dup := base
	dup.EmbedKey = "LOBBY-RADIO"
	if _, err := s.chains.Create(ctx, dup); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("duplicate embed key err = %v, want conflict", err)
	}
}

func TestChainCreatePreviewGetsStopTime(t *testing.T) {
	s := newStack(t, sampleLibrary(t))
	c, err := s.chains.Create(context.Background(), CreateChainInput{
		AccountID:  uuid.New(),
		TemplateID: uuid.New(),
		Type:       types.ChainTypePreview,
		Now:        t0,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.StopAt == nil || !c.StopAt.Equal(c.StartAt.Add(time.Hour)) {
		t.Fatalf("preview stop = %v, start = %v", c.StopAt, c.StartAt)
	}
}

func TestChainUpdateStateRejectsSkips(t *testing.T) {
	s := newStack(t, sampleLibrary(t))
	ctx := context.Background()
	c, err := s.chains.Create(ctx, CreateChainInput{AccountID: uuid.New(), TemplateID: uuid.New(), Now: t0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.chains.UpdateState(ctx, c.ID, types.ChainStateComplete, t0); err == nil {
		t.Fatalf("DRAFT -> COMPLETE accepted")
	}
	got, _ := s.chains.Get(ctx, c.ID)
	if got.State != types.ChainStateDraft {
		t.Fatalf("state = %s after rejected transition", got.State)
	}
}

func TestBuildNextSegmentOrComplete(t *testing.T) {
	s := newStack(t, sampleLibrary(t))
	ctx := context.Background()
	chain := startChain(t, s, "")

	tpl, err := s.chains.BuildNextSegmentOrComplete(ctx, chain.ID, t0)
	if err != nil || tpl == nil {
		t.Fatalf("first template = %+v, %v", tpl, err)
	}
	if tpl.Offset != 0 || !tpl.BeginAt.Equal(chain.StartAt) || tpl.State != types.SegmentStatePlanned {
		t.Fatalf("first template = %+v", tpl)
	}

	seg, err := s.segments.Create(ctx, tpl)
	if err != nil {
		t.Fatalf("Create segment: %v", err)
	}
	stop := t0.Add(time.Second)
	dbc := dbctx.Context{Ctx: ctx}
	if err := s.db.WithContext(ctx).Model(&types.Chain{}).Where("id = ?", chain.ID).Update("stop_at", stop).Error; err != nil {
		t.Fatalf("set stop_at: %v", err)
	}
	end := t0.Add(8 * time.Second)
	if err := s.db.WithContext(ctx).Model(&types.Segment{}).Where("id = ?", seg.ID).
		Updates(map[string]any{"state": types.SegmentStateDubbed, "end_at": end}).Error; err != nil {
		t.Fatalf("dub segment: %v", err)
	}

	tpl, err = s.chains.BuildNextSegmentOrComplete(ctx, chain.ID, t0.Add(time.Minute))
	if err != nil || tpl != nil {
		t.Fatalf("past stop: template = %+v, err = %v", tpl, err)
	}
	c, err := s.repos.Chains.GetByID(dbc, chain.ID)
	if err != nil || c.State != types.ChainStateComplete {
		t.Fatalf("chain = %+v, %v", c, err)
	}
	if len(eventsOf(s.bus, realtime.EventChainComplete)) != 1 {
		t.Fatalf("no chain.complete event in %+v", s.bus.Published())
	}

	if _, err := s.chains.BuildNextSegmentOrComplete(ctx, chain.ID, t0.Add(time.Minute)); !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("complete chain: want precondition, got %v", err)
	}
}

func TestChainReviveAndDestroy(t *testing.T) {
	s := newStack(t, sampleLibrary(t))
	ctx := context.Background()
	old, err := s.chains.Create(ctx, CreateChainInput{AccountID: uuid.New(), TemplateID: uuid.New(), EmbedKey: "cafe", Now: t0})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, to := range []types.ChainState{types.ChainStateReady, types.ChainStateFabricate} {
		if _, err := s.chains.UpdateState(ctx, old.ID, to, t0); err != nil {
			t.Fatalf("UpdateState %s: %v", to, err)
		}
	}

	revived, err := s.chains.Revive(ctx, old.ID, "stalled", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Revive: %v", err)
	}
	if revived.ID == old.ID || revived.State != types.ChainStateFabricate {
		t.Fatalf("revived = %+v", revived)
	}
	if got, err := s.chains.GetByEmbedKey(ctx, "cafe"); err != nil || got.ID != revived.ID {
		t.Fatalf("embed key resolves to %+v, %v", got, err)
	}

	if err := s.chains.Destroy(ctx, old.ID); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := s.chains.Get(ctx, old.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("destroyed chain: want not found, got %v", err)
	}
}
