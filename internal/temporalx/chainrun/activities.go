package chainrun

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	"github.com/yungbote/fabricator/internal/platform/ctxutil"
	"github.com/yungbote/fabricator/internal/platform/logger"
	"github.com/yungbote/fabricator/internal/services"
)

type Fabricator interface {
	FabricateNext(ctx context.Context, chainID uuid.UUID, now time.Time) (services.FabricateResult, error)
}

type Activities struct {
	Log         *logger.Logger
	Fabrication Fabricator
	Now         func() time.Time
}

// Tick crafts at most one segment. Errors that retrying cannot fix are
// returned as non-retryable so the workflow stops instead of spinning.
func (a *Activities) Tick(ctx context.Context, chainID string) (TickResult, error) {
	res := TickResult{ChainID: strings.TrimSpace(chainID)}
	if a == nil || a.Fabrication == nil {
		return res, temporal.NewNonRetryableApplicationError("chainrun: activity not configured", "config", nil)
	}
	id, err := uuid.Parse(res.ChainID)
	if err != nil || id == uuid.Nil {
		return res, temporal.NewNonRetryableApplicationError("chainrun: invalid chain_id", "validation", err)
	}
	activity.RecordHeartbeat(ctx, res.ChainID)
	ctx = ctxutil.WithChain(ctx, res.ChainID, "temporal")

	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}
	out, err := a.Fabrication.FabricateNext(ctx, id, now)
	if err != nil {
		code := domainagg.CodeOf(err)
		if code.Terminal() {
			return res, temporal.NewNonRetryableApplicationError(err.Error(), string(code), err)
		}
		if a.Log != nil {
			a.Log.Ctx(ctx).Warn("chain tick failed", "code", code, "error", err)
		}
		return res, err
	}
	res.Outcome = string(out.Outcome)
	res.Picks = out.Picks
	if out.Segment != nil {
		res.Offset = out.Segment.Offset
	}
	return res, nil
}
