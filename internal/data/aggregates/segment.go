package aggregates

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/data/repos"
	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/lifecycle"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
)

const segmentTable = "segment"

type SegmentAggregateDeps struct {
	Base BaseDeps

	Chains   repos.ChainRepo
	Segments repos.SegmentRepo
	Craft    repos.CraftRepo
}

type segmentAggregate struct {
	deps SegmentAggregateDeps
}

func NewSegmentAggregate(deps SegmentAggregateDeps) domainagg.SegmentAggregate {
	deps.Base = deps.Base.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "Segment")
	return &segmentAggregate{deps: deps}
}

func (a *segmentAggregate) configured(op string) error {
	if a.deps.Chains == nil || a.deps.Segments == nil || a.deps.Craft == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "segment aggregate repos not configured", nil)
	}
	return nil
}

func (a *segmentAggregate) Plan(ctx context.Context, template *types.Segment) (*types.Segment, error) {
	const op = "Fabrication.Segment.Plan"
	if err := a.configured(op); err != nil {
		return nil, err
	}
	if template == nil || template.ChainID == uuid.Nil {
		return nil, domainagg.Validation(op, "missing chain_id")
	}
	if template.Offset < 0 {
		return nil, domainagg.Validation(op, "negative offset %d", template.Offset)
	}

	seg := *template
	seg.ID = uuid.New()
	seg.State = types.SegmentStatePlanned
	if seg.Type == "" {
		seg.Type = types.SegmentTypePending
	}
	now := a.deps.Base.now()
	seg.CreatedAt, seg.UpdatedAt = now, now

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		chain, err := a.deps.Chains.GetByID(dbc, seg.ChainID)
		if err != nil {
			return err
		}
		if err := RequireStateAllowed(string(chain.State), string(types.ChainStateFabricate)); err != nil {
			return err
		}
		if seg.Offset > 0 {
			prev, err := a.deps.Segments.GetLast(dbc, seg.ChainID)
			if err != nil {
				return err
			}
			if prev == nil || prev.Offset < seg.Offset-1 {
				return PreconditionError(fmt.Sprintf("segment %d has no predecessor", seg.Offset))
			}
		}
		_, err = a.deps.Segments.Create(dbc, &seg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &seg, nil
}

func (a *segmentAggregate) Transition(ctx context.Context, in domainagg.TransitionSegmentInput) (domainagg.TransitionSegmentResult, error) {
	const op = "Fabrication.Segment.Transition"
	out := domainagg.TransitionSegmentResult{SegmentID: in.SegmentID, To: in.To}
	if err := a.configured(op); err != nil {
		return out, err
	}
	if in.SegmentID == uuid.Nil {
		return out, domainagg.Validation(op, "missing segment_id")
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		seg, err := a.deps.Segments.GetByID(dbc, in.SegmentID)
		if err != nil {
			return err
		}
		out.From = seg.State
		if len(in.From) > 0 && !slices.Contains(in.From, seg.State) {
			return ConflictError(fmt.Sprintf("segment is %s, expected %v", seg.State, in.From))
		}
		if err := lifecycle.RequireSegmentTransition(seg.State, in.To); err != nil {
			return err
		}
		updates := map[string]any{"state": in.To}
		if key := strings.TrimSpace(in.StorageKey); key != "" {
			updates["storage_key"] = key
		} else if seg.State == in.To && len(in.From) == 0 {
			return nil
		}
		ok, err := a.deps.Base.CASGuard.UpdateByState(dbc, segmentTable, seg.ID, []string{string(seg.State)}, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "segment state changed concurrently"); err != nil {
			return err
		}
		out.Changed = seg.State != in.To
		return nil
	})
	return out, err
}

func (a *segmentAggregate) CommitCraft(ctx context.Context, out *types.CraftOutput) error {
	const op = "Fabrication.Segment.CommitCraft"
	if err := a.configured(op); err != nil {
		return err
	}
	if out == nil || out.Segment == nil || out.Segment.ID == uuid.Nil {
		return domainagg.Validation(op, "missing crafted segment")
	}
	seg := out.Segment

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		cur, err := a.deps.Segments.GetByID(dbc, seg.ID)
		if err != nil {
			return err
		}
		if err := RequireStateAllowed(string(cur.State), string(types.SegmentStateCrafting)); err != nil {
			return err
		}
		ok, err := a.deps.Base.CASGuard.UpdateByState(dbc, segmentTable, seg.ID, []string{string(types.SegmentStateCrafting)}, map[string]any{
			"state":       types.SegmentStateCrafted,
			"type":        seg.Type,
			"end_at":      seg.EndAt,
			"musical_key": seg.Key,
			"total":       seg.Total,
			"tempo":       seg.Tempo,
			"density":     seg.Density,
			"delta":       seg.Delta,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "segment left CRAFTING during commit"); err != nil {
			return err
		}
		return a.deps.Craft.Insert(dbc, out)
	})
	if err == nil {
		seg.State = types.SegmentStateCrafted
	}
	return err
}

func (a *segmentAggregate) Revert(ctx context.Context, in domainagg.RevertSegmentInput) (domainagg.RevertSegmentResult, error) {
	const op = "Fabrication.Segment.Revert"
	out := domainagg.RevertSegmentResult{SegmentID: in.SegmentID}
	if err := a.configured(op); err != nil {
		return out, err
	}
	if in.SegmentID == uuid.Nil {
		return out, domainagg.Validation(op, "missing segment_id")
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		seg, err := a.deps.Segments.GetByID(dbc, in.SegmentID)
		if err != nil {
			return err
		}
		if err := RequireStateAllowed(string(seg.State), string(types.SegmentStatePlanned), string(types.SegmentStateCrafting)); err != nil {
			return err
		}
		if err := a.deps.Craft.DeleteCraft(dbc, []uuid.UUID{seg.ID}); err != nil {
			return err
		}
		to := seg.State
		if in.ToPlanned {
			to = types.SegmentStatePlanned
		}
		// The state write doubles as the check that nobody moved the segment meanwhile.
		ok, err := a.deps.Base.CASGuard.UpdateByState(dbc, segmentTable, seg.ID, []string{string(seg.State)}, map[string]any{"state": to})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "segment state changed during revert"); err != nil {
			return err
		}
		if reason := strings.TrimSpace(in.Reason); reason != "" {
			if err := a.deps.Craft.AddMessages(dbc, []*types.SegmentMessage{{
				SegmentID: seg.ID,
				Type:      types.MessageTypeInfo,
				Body:      "reverted: " + reason,
				CreatedAt: a.deps.Base.now(),
			}}); err != nil {
				return err
			}
		}
		out.State = to
		return nil
	})
	return out, err
}

func (a *segmentAggregate) Fail(ctx context.Context, in domainagg.FailSegmentInput) error {
	const op = "Fabrication.Segment.Fail"
	if err := a.configured(op); err != nil {
		return err
	}
	if in.SegmentID == uuid.Nil {
		return domainagg.Validation(op, "missing segment_id")
	}

	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		seg, err := a.deps.Segments.GetByID(dbc, in.SegmentID)
		if err != nil {
			return err
		}
		if err := lifecycle.RequireSegmentTransition(seg.State, types.SegmentStateFailed); err != nil {
			return err
		}
		if seg.State == types.SegmentStateCrafting {
			if err := a.deps.Craft.DeleteCraft(dbc, []uuid.UUID{seg.ID}); err != nil {
				return err
			}
		}
		ok, err := a.deps.Base.CASGuard.UpdateByState(dbc, segmentTable, seg.ID, []string{string(seg.State)}, map[string]any{"state": types.SegmentStateFailed})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "segment state changed before failing"); err != nil {
			return err
		}
		now := a.deps.Base.now()
		for _, m := range in.Messages {
			m.SegmentID = seg.ID
			if m.CreatedAt.IsZero() {
				m.CreatedAt = now
			}
		}
		return a.deps.Craft.AddMessages(dbc, in.Messages)
	})
}
