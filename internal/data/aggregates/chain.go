package aggregates

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/data/repos"
	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/fabrication/lifecycle"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
)

const chainTable = "chain"

type ChainAggregateDeps struct {
	Base      BaseDeps
	Lifecycle lifecycle.Config

	Chains   repos.ChainRepo
	Segments repos.SegmentRepo
	Craft    repos.CraftRepo
}

type chainAggregate struct {
	deps ChainAggregateDeps
}

func NewChainAggregate(deps ChainAggregateDeps) domainagg.ChainAggregate {
	deps.Base = deps.Base.withDefaults()
	deps.Base.Log = deps.Base.Log.With("aggregate", "Chain")
	return &chainAggregate{deps: deps}
}

func (a *chainAggregate) Transition(ctx context.Context, in domainagg.TransitionChainInput) (*types.Chain, error) {
	const op = "Fabrication.Chain.Transition"
	if a.deps.Chains == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "chain repo not configured", nil)
	}
	if in.ChainID == uuid.Nil {
		return nil, domainagg.Validation(op, "missing chain_id")
	}
	now := in.Now
	if now.IsZero() {
		now = a.deps.Base.now()
	}

	var out *types.Chain
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		c, err := a.deps.Chains.GetByID(dbc, in.ChainID)
		if err != nil {
			return err
		}
		from := c.State
		if err := lifecycle.ApplyChainState(c, in.To, now, a.deps.Lifecycle); err != nil {
			return err
		}
		ok, err := a.deps.Base.CASGuard.UpdateByState(dbc, chainTable, c.ID, []string{string(from)}, map[string]any{
			"state":    c.State,
			"start_at": c.StartAt,
			"stop_at":  c.StopAt,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "chain state changed concurrently"); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *chainAggregate) Revive(ctx context.Context, in domainagg.ReviveChainInput) (*types.Chain, error) {
	const op = "Fabrication.Chain.Revive"
	if a.deps.Chains == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "chain repo not configured", nil)
	}
	if in.ChainID == uuid.Nil {
		return nil, domainagg.Validation(op, "missing chain_id")
	}
	now := in.Now
	if now.IsZero() {
		now = a.deps.Base.now()
	}

	var fresh *types.Chain
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		prior, err := a.deps.Chains.GetByID(dbc, in.ChainID)
		if err != nil {
			return err
		}
		if err := RequireStateAllowed(string(prior.State), string(types.ChainStateFabricate), string(types.ChainStateFailed)); err != nil {
			return err
		}
		// The embed key moves to the new chain, so it is released first.
		ok, err := a.deps.Base.CASGuard.UpdateByState(dbc, chainTable, prior.ID, []string{string(prior.State)}, map[string]any{
			"state":     types.ChainStateFailed,
			"embed_key": nil,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "chain state changed during revive"); err != nil {
			return err
		}

		fresh = &types.Chain{
			ID:         uuid.New(),
			AccountID:  prior.AccountID,
			TemplateID: prior.TemplateID,
			Name:       prior.Name,
			Type:       prior.Type,
			State:      types.ChainStateReady,
			EmbedKey:   prior.EmbedKey,
			Config:     prior.Config,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := lifecycle.ApplyChainState(fresh, types.ChainStateFabricate, now, a.deps.Lifecycle); err != nil {
			return err
		}
		_, err = a.deps.Chains.Create(dbc, fresh)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.deps.Base.Log.Info("chain revived", "prior_chain_id", in.ChainID, "chain_id", fresh.ID, "reason", in.Reason)
	return fresh, nil
}

func (a *chainAggregate) Destroy(ctx context.Context, chainID uuid.UUID) error {
	const op = "Fabrication.Chain.Destroy"
	if a.deps.Chains == nil || a.deps.Segments == nil || a.deps.Craft == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "chain aggregate repos not configured", nil)
	}
	if chainID == uuid.Nil {
		return domainagg.Validation(op, "missing chain_id")
	}
	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if _, err := a.deps.Chains.GetByID(dbc, chainID); err != nil {
			return err
		}
		ids, err := a.deps.Segments.DeleteByChain(dbc, chainID)
		if err != nil {
			return err
		}
		if err := a.deps.Craft.DeleteAll(dbc, ids); err != nil {
			return err
		}
		return a.deps.Chains.Delete(dbc, chainID)
	})
}
