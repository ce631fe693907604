package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/fabricator/internal/data/aggregates"
	"github.com/yungbote/fabricator/internal/data/repos"
	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
	"github.com/yungbote/fabricator/internal/platform/logger"
	"github.com/yungbote/fabricator/internal/realtime"
	"github.com/yungbote/fabricator/internal/realtime/bus"
)

type SegmentService interface {
	Create(ctx context.Context, template *types.Segment) (*types.Segment, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Segment, error)
	GetLast(ctx context.Context, chainID uuid.UUID) (*types.Segment, error)
	List(ctx context.Context, chainID uuid.UUID, fromOffset int64, limit int) ([]*types.Segment, error)
	Transition(ctx context.Context, id uuid.UUID, to types.SegmentState) error
	// Claim moves a PLANNED segment to CRAFTING. A segment already claimed by
	// another worker yields a conflict.
	Claim(ctx context.Context, id uuid.UUID) error
	// Revert drops the craft output of a PLANNED or CRAFTING segment in place.
	Revert(ctx context.Context, id uuid.UUID, reason string) error
	// Replan reverts and returns a CRAFTING segment to PLANNED.
	Replan(ctx context.Context, id uuid.UUID, reason string) error
	CommitCraft(ctx context.Context, out *types.CraftOutput) error
	MarkDubbing(ctx context.Context, id uuid.UUID) error
	MarkDubbed(ctx context.Context, id uuid.UUID, storageKey string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type segmentService struct {
	log   *logger.Logger
	repos repos.Set
	agg   domainagg.SegmentAggregate
	bus   bus.Bus
}

func NewSegmentService(baseLog *logger.Logger, set repos.Set, agg domainagg.SegmentAggregate, b bus.Bus) SegmentService {
	if b == nil {
		b = bus.Nop{}
	}
	return &segmentService{
		log:   baseLog.With("service", "SegmentService"),
		repos: set,
		agg:   agg,
		bus:   b,
	}
}

func (s *segmentService) Create(ctx context.Context, template *types.Segment) (*types.Segment, error) {
	return s.agg.Plan(ctx, template)
}

func (s *segmentService) Get(ctx context.Context, id uuid.UUID) (*types.Segment, error) {
	seg, err := s.repos.Segments.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, dataagg.MapError("Fabrication.Segment.Get", err)
	}
	return seg, nil
}

func (s *segmentService) GetLast(ctx context.Context, chainID uuid.UUID) (*types.Segment, error) {
	seg, err := s.repos.Segments.GetLast(dbctx.Context{Ctx: ctx}, chainID)
	if err != nil {
		return nil, dataagg.MapError("Fabrication.Segment.GetLast", err)
	}
	return seg, nil
}

func (s *segmentService) List(ctx context.Context, chainID uuid.UUID, fromOffset int64, limit int) ([]*types.Segment, error) {
	out, err := s.repos.Segments.ListByChain(dbctx.Context{Ctx: ctx}, chainID, fromOffset, limit)
	if err != nil {
		return nil, dataagg.MapError("Fabrication.Segment.List", err)
	}
	return out, nil
}

func (s *segmentService) Transition(ctx context.Context, id uuid.UUID, to types.SegmentState) error {
	_, err := s.agg.Transition(ctx, domainagg.TransitionSegmentInput{SegmentID: id, To: to})
	return err
}

func (s *segmentService) Claim(ctx context.Context, id uuid.UUID) error {
	_, err := s.agg.Transition(ctx, domainagg.TransitionSegmentInput{
		SegmentID: id,
		To:        types.SegmentStateCrafting,
		From:      []types.SegmentState{types.SegmentStatePlanned},
	})
	return err
}

func (s *segmentService) Revert(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.agg.Revert(ctx, domainagg.RevertSegmentInput{SegmentID: id, Reason: reason})
	return err
}

func (s *segmentService) Replan(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := s.agg.Revert(ctx, domainagg.RevertSegmentInput{SegmentID: id, ToPlanned: true, Reason: reason})
	return err
}

func (s *segmentService) CommitCraft(ctx context.Context, out *types.CraftOutput) error {
	if err := s.agg.CommitCraft(ctx, out); err != nil {
		return err
	}
	seg := out.Segment
	s.publish(ctx, realtime.Event{
		Type:      realtime.EventSegmentCrafted,
		ChainID:   seg.ChainID,
		SegmentID: seg.ID,
		Offset:    seg.Offset,
		State:     string(types.SegmentStateCrafted),
		Data: map[string]any{
			"type":  seg.Type,
			"picks": len(out.Picks),
		},
	})
	return nil
}

func (s *segmentService) MarkDubbing(ctx context.Context, id uuid.UUID) error {
	return s.Transition(ctx, id, types.SegmentStateDubbing)
}

func (s *segmentService) MarkDubbed(ctx context.Context, id uuid.UUID, storageKey string) error {
	const op = "Fabrication.Segment.MarkDubbed"
	if strings.TrimSpace(storageKey) == "" {
		return domainagg.Validation(op, "missing storage key")
	}
	res, err := s.agg.Transition(ctx, domainagg.TransitionSegmentInput{
		SegmentID:  id,
		To:         types.SegmentStateDubbed,
		StorageKey: storageKey,
	})
	if err != nil {
		return err
	}
	if res.Changed {
		if seg, err := s.Get(ctx, id); err == nil {
			s.publish(ctx, realtime.Event{
				Type:      realtime.EventSegmentDubbed,
				ChainID:   seg.ChainID,
				SegmentID: seg.ID,
				Offset:    seg.Offset,
				State:     string(seg.State),
			})
		}
	}
	return nil
}

func (s *segmentService) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	msgs := []*types.SegmentMessage{{Type: types.MessageTypeError, Body: strings.TrimSpace(reason)}}
	if err := s.agg.Fail(ctx, domainagg.FailSegmentInput{SegmentID: id, Messages: msgs}); err != nil {
		return err
	}
	seg, err := s.Get(ctx, id)
	if err != nil {
		return nil
	}
	s.publish(ctx, realtime.Event{
		Type:      realtime.EventSegmentFailed,
		ChainID:   seg.ChainID,
		SegmentID: seg.ID,
		Offset:    seg.Offset,
		State:     string(seg.State),
		Data:      map[string]any{"reason": reason},
	})
	return nil
}

func (s *segmentService) publish(ctx context.Context, ev realtime.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("publish segment event failed", "segment_id", ev.SegmentID, "event", ev.Type, "error", err)
	}
}
