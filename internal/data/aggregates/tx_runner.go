package aggregates

import (
	"context"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
)

// TxRunner is the transaction boundary every aggregate write goes through.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner runs fn inside a gorm transaction. When db is itself a
// transaction the work is nested under a savepoint.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "no database configured", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// runWithRetry reruns the whole transaction while it fails with a retryable
// code (serialization failure, lock timeout, busy sqlite file). Each attempt
// starts from scratch, so fn must not keep state across calls. onRetry runs
// before every repeat.
func runWithRetry(ctx context.Context, r TxRunner, op string, attempts int, backoff time.Duration, fn func(dbctx.Context) error, onRetry func()) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; ; i++ {
		err = MapError(op, r.InTx(ctx, fn))
		if err == nil || i >= attempts || !domainagg.IsCode(err, domainagg.CodeRetryable) || ctx.Err() != nil {
			return err
		}
		onRetry()
		t := time.NewTimer(backoff * time.Duration(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}
