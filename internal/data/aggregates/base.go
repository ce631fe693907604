package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
	"github.com/yungbote/fabricator/internal/platform/logger"
)

// BaseDeps are shared by every aggregate. Zero values are filled in from DB.
type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
	// Now is the clock used for timestamps. Defaults to time.Now.
	Now func() time.Time

	// WriteAttempts bounds how often a retryable write is run. Defaults to 3.
	WriteAttempts int
	RetryBackoff  time.Duration
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.WriteAttempts == 0 {
		d.WriteAttempts = 3
	}
	if d.RetryBackoff <= 0 {
		d.RetryBackoff = 10 * time.Millisecond
	}
	return d
}

func (d BaseDeps) now() time.Time { return d.Now().UTC() }

// executeWrite runs fn in a transaction, retrying transient failures, and
// reports the final coded outcome to the hooks.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	mapped := runWithRetry(ctx, deps.Runner, op, deps.WriteAttempts, deps.RetryBackoff, fn, func() {
		deps.Hooks.IncRetry(op)
	})

	status := aggregateErrorStatus(mapped)
	if domainagg.IsCode(mapped, domainagg.CodeConflict) {
		deps.Hooks.IncConflict(op)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	if mapped != nil {
		deps.Log.Debug("aggregate write failed", "op", op, "status", status, "error", mapped)
	}
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeOf(MapError("aggregate.status", err))
	}
	if code == "" {
		return "failure"
	}
	return string(code)
}
