package aggregates

import (
	"context"
	"testing"
	"time"

	domainagg "github.com/yungbote/fabricator/internal/domain/aggregates"
	"github.com/yungbote/fabricator/internal/platform/dbctx"
)

func TestExecuteWriteReportsStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    string
		conflicts int
		retries   int
	}{
		{"success", nil, "success", 0, 0},
		{"privilege", domainagg.Privilege("op", "no"), string(domainagg.CodePrivilege), 0, 0},
		{"precondition", PreconditionError("wrong state"), string(domainagg.CodePreconditionFailed), 0, 0},
		{"conflict", ConflictError("stale"), string(domainagg.CodeConflict), 1, 0},
		{"retryable", RetryableError("lock timeout"), string(domainagg.CodeRetryable), 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks := &spyHooks{}
			deps := BaseDeps{Runner: spyTxRunner{}, Hooks: hooks, RetryBackoff: time.Microsecond}
			err := executeWrite(context.Background(), deps, "agg.test", func(dbctx.Context) error {
				return tt.err
			})
			if (err == nil) != (tt.err == nil) {
				t.Fatalf("err: want=%v got=%v", tt.err, err)
			}
			if len(hooks.Operations) != 1 || hooks.Operations[0].Status != tt.status {
				t.Fatalf("operations: %+v", hooks.Operations)
			}
			if len(hooks.Conflicts) != tt.conflicts || len(hooks.Retries) != tt.retries {
				t.Fatalf("conflicts=%v retries=%v", hooks.Conflicts, hooks.Retries)
			}
		})
	}
}

func TestExecuteWriteRetriesTransientFailure(t *testing.T) {
	hooks := &spyHooks{}
	calls := 0
	deps := BaseDeps{Runner: spyTxRunner{}, Hooks: hooks, RetryBackoff: time.Microsecond}
	err := executeWrite(context.Background(), deps, "agg.retry", func(dbctx.Context) error {
		calls++
		if calls == 1 {
			return RetryableError("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("executeWrite: %v", err)
	}
	if calls != 2 || len(hooks.Retries) != 1 || hooks.Operations[0].Status != "success" {
		t.Fatalf("calls=%d retries=%v ops=%+v", calls, hooks.Retries, hooks.Operations)
	}
}

func TestExecuteWriteDoesNotRetryConflict(t *testing.T) {
	calls := 0
	deps := BaseDeps{Runner: spyTxRunner{}, Hooks: &spyHooks{}, RetryBackoff: time.Microsecond}
	_ = executeWrite(context.Background(), deps, "agg.conflict", func(dbctx.Context) error {
		calls++
		return ConflictError("stale")
	})
	if calls != 1 {
		t.Fatalf("conflict ran %d times", calls)
	}
}

func TestExecuteWriteDefaultsOpName(t *testing.T) {
	hooks := &spyHooks{}
	_ = executeWrite(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, "  ", func(dbctx.Context) error { return nil })
	if hooks.Operations[0].Name != "aggregate.write" {
		t.Fatalf("op name: got=%q", hooks.Operations[0].Name)
	}
}

func TestAggregateErrorStatus(t *testing.T) {
	if got := aggregateErrorStatus(nil); got != "success" {
		t.Fatalf("nil status: got=%s", got)
	}
	if got := aggregateErrorStatus(context.Canceled); got != string(domainagg.CodeRetryable) {
		t.Fatalf("canceled status: got=%s", got)
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) { h.Conflicts = append(h.Conflicts, name) }

func (h *spyHooks) IncRetry(name string) { h.Retries = append(h.Retries, name) }
