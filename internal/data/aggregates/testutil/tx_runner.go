package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/fabricator/internal/data/aggregates"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
)

// InjectedTxRunner runs aggregate bodies in a real transaction on DB and can
// force the transaction to fail before the body or at commit. A failed commit
// rolls back everything the body wrote.
type InjectedTxRunner struct {
	DB *gorm.DB

	mu             sync.Mutex
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBeforeBody, failCommit := r.FailBeforeBody, r.FailCommit
	r.mu.Unlock()

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if failBeforeBody != nil {
			return failBeforeBody
		}
		if fn != nil {
			if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
				return err
			}
		}
		return failCommit
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.RollbackCalls++
	} else {
		r.CommitCalls++
	}
	return err
}
