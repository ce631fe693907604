package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/fabricator/internal/content"
	dataagg "github.com/yungbote/fabricator/internal/data/aggregates"
	"github.com/yungbote/fabricator/internal/data/repos"
	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/lifecycle"
	"github.com/yungbote/fabricator/internal/observability"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
	"github.com/yungbote/fabricator/internal/platform/logger"
	"github.com/yungbote/fabricator/internal/realtime"
	"github.com/yungbote/fabricator/internal/realtime/bus"
)

type CreateChainInput struct {
	AccountID  uuid.UUID
	TemplateID uuid.UUID
	Name       string
	Type       types.ChainType
	EmbedKey   string
	// Config is a YAML or JSON template override document.
	Config []byte
	Now    time.Time
}

type ChainService interface {
	Create(ctx context.Context, in CreateChainInput) (*types.Chain, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Chain, error)
	GetByEmbedKey(ctx context.Context, embedKey string) (*types.Chain, error)
	ListFabricating(ctx context.Context) ([]*types.Chain, error)
	UpdateState(ctx context.Context, id uuid.UUID, to types.ChainState, now time.Time) (*types.Chain, error)
	Revive(ctx context.Context, id uuid.UUID, reason string, now time.Time) (*types.Chain, error)
	Destroy(ctx context.Context, id uuid.UUID) error
	// BuildNextSegmentOrComplete returns the template of the chain's next
	// segment. It returns nil when the chain just completed or has nothing
	// to build yet.
	BuildNextSegmentOrComplete(ctx context.Context, chainID uuid.UUID, now time.Time) (*types.Segment, error)
}

type chainService struct {
	log       *logger.Logger
	repos     repos.Set
	agg       domainagg.ChainAggregate
	lifecycle lifecycle.Config
	bus       bus.Bus
	metrics   *observability.Metrics
}

func NewChainService(
	baseLog *logger.Logger,
	set repos.Set,
	agg domainagg.ChainAggregate,
	cfg lifecycle.Config,
	b bus.Bus,
	metrics *observability.Metrics,
) ChainService {
	if b == nil {
		b = bus.Nop{}
	}
	return &chainService{
		log:       baseLog.With("service", "ChainService"),
		repos:     set,
		agg:       agg,
		lifecycle: cfg,
		bus:       b,
		metrics:   metrics,
	}
}

func (s *chainService) Create(ctx context.Context, in CreateChainInput) (*types.Chain, error) {
	const op = "Fabrication.Chain.Create"
	if in.AccountID == uuid.Nil || in.TemplateID == uuid.Nil {
		return nil, domainagg.Validation(op, "account_id and template_id are required")
	}
	if in.Type == "" {
		in.Type = types.ChainTypeProduction
	}
	if in.Type != types.ChainTypeProduction && in.Type != types.ChainTypePreview {
		return nil, domainagg.Validation(op, "unknown chain type %q", in.Type)
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	c := &types.Chain{
		ID:         uuid.New(),
		AccountID:  in.AccountID,
		TemplateID: in.TemplateID,
		Name:       strings.TrimSpace(in.Name),
		Type:       in.Type,
		State:      types.ChainStateDraft,
	}
	if key := strings.ToLower(strings.TrimSpace(in.EmbedKey)); key != "" {
		c.EmbedKey = &key
	}
	if len(in.Config) > 0 {
		// Reject bad overrides now rather than on the first craft pass.
		if _, err := content.ParseTemplateConfig(in.Config); err != nil {
			return nil, domainagg.Validation(op, "template config: %v", err)
		}
		raw, err := yamlToJSON(in.Config)
		if err != nil {
			return nil, domainagg.Validation(op, "template config: %v", err)
		}
		c.Config = datatypes.JSON(raw)
	}
	if err := lifecycle.ApplyChainState(c, types.ChainStateDraft, now, s.lifecycle); err != nil {
		return nil, err
	}
	if _, err := s.repos.Chains.Create(dbctx.Context{Ctx: ctx}, c); err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.log.Info("chain created", "chain_id", c.ID, "type", c.Type, "embed_key", in.EmbedKey)
	return c, nil
}

func (s *chainService) Get(ctx context.Context, id uuid.UUID) (*types.Chain, error) {
	c, err := s.repos.Chains.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, dataagg.MapError("Fabrication.Chain.Get", err)
	}
	return c, nil
}

func (s *chainService) GetByEmbedKey(ctx context.Context, embedKey string) (*types.Chain, error) {
	const op = "Fabrication.Chain.GetByEmbedKey"
	if strings.TrimSpace(embedKey) == "" {
		return nil, domainagg.Validation(op, "missing embed key")
	}
	c, err := s.repos.Chains.GetByEmbedKey(dbctx.Context{Ctx: ctx}, embedKey)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return c, nil
}

func (s *chainService) ListFabricating(ctx context.Context) ([]*types.Chain, error) {
	out, err := s.repos.Chains.ListByState(dbctx.Context{Ctx: ctx}, []types.ChainState{types.ChainStateFabricate})
	if err != nil {
		return nil, dataagg.MapError("Fabrication.Chain.ListFabricating", err)
	}
	return out, nil
}

func (s *chainService) UpdateState(ctx context.Context, id uuid.UUID, to types.ChainState, now time.Time) (*types.Chain, error) {
	if s.agg == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, "Fabrication.Chain.UpdateState", "chain aggregate not configured", nil)
	}
	c, err := s.agg.Transition(ctx, domainagg.TransitionChainInput{ChainID: id, To: to, Now: now})
	if err != nil {
		return nil, err
	}
	switch to {
	case types.ChainStateComplete:
		s.metrics.IncChainCompleted()
		s.publish(ctx, realtime.EventChainComplete, c, now)
	case types.ChainStateFailed:
		s.publish(ctx, realtime.EventChainFailed, c, now)
	}
	return c, nil
}

func (s *chainService) Revive(ctx context.Context, id uuid.UUID, reason string, now time.Time) (*types.Chain, error) {
	if s.agg == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, "Fabrication.Chain.Revive", "chain aggregate not configured", nil)
	}
	return s.agg.Revive(ctx, domainagg.ReviveChainInput{ChainID: id, Reason: reason, Now: now})
}

func (s *chainService) Destroy(ctx context.Context, id uuid.UUID) error {
	if s.agg == nil {
		return domainagg.NewError(domainagg.CodeInternal, "Fabrication.Chain.Destroy", "chain aggregate not configured", nil)
	}
	if err := s.agg.Destroy(ctx, id); err != nil {
		return err
	}
	s.log.Info("chain destroyed", "chain_id", id)
	return nil
}

func (s *chainService) BuildNextSegmentOrComplete(ctx context.Context, chainID uuid.UUID, now time.Time) (*types.Segment, error) {
	const op = "Fabrication.Chain.BuildNextSegmentOrComplete"
	dbc := dbctx.Context{Ctx: ctx}
	c, err := s.repos.Chains.GetByID(dbc, chainID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if c.State != types.ChainStateFabricate {
		return nil, domainagg.NewError(domainagg.CodePreconditionFailed, op, "chain is "+string(c.State), nil)
	}
	last, err := s.repos.Segments.GetLast(dbc, chainID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}

	d := lifecycle.NextSegment(c, last, now, s.lifecycle)
	if d.Complete {
		if _, err := s.UpdateState(ctx, chainID, types.ChainStateComplete, now); err != nil {
			return nil, err
		}
		s.log.Info("chain complete", "chain_id", chainID, "last_offset", last.Offset)
		return nil, nil
	}
	return d.Template, nil
}

func (s *chainService) publish(ctx context.Context, t realtime.EventType, c *types.Chain, now time.Time) {
	ev := realtime.Event{Type: t, ChainID: c.ID, State: string(c.State), At: now.UTC()}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("publish chain event failed", "chain_id", c.ID, "event", t, "error", err)
	}
}

// yamlToJSON normalizes a template override to JSON for the jsonb column.
func yamlToJSON(doc []byte) ([]byte, error) {
	var v any
	if err := yamlUnmarshal(doc, &v); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAML(v))
}
