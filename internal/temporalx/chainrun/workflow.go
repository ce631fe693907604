package chainrun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/fabricator/internal/services"
)

const (
	defaultPollInterval  = 2 * time.Second
	defaultCraftsPerTick = 4
	continueTickLimit    = 2000
	continueHistoryLimit = 15000
)

// Workflow keeps one chain's buffer full until the chain completes or fails.
func Workflow(ctx workflow.Context, in Input) error {
	chainID := strings.TrimSpace(in.ChainID)
	if chainID == "" {
		chainID = strings.TrimPrefix(workflow.GetInfo(ctx).WorkflowExecution.ID, WorkflowIDPrefix)
	}
	if chainID == "" {
		return fmt.Errorf("chainrun: missing chain_id")
	}
	in.ChainID = chainID
	poll := in.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	maxCrafts := in.MaxCraftsPerTick
	if maxCrafts < 1 {
		maxCrafts = defaultCraftsPerTick
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		HeartbeatTimeout:    30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	})
	log := workflow.GetLogger(ctx)
	wakeCh := workflow.GetSignalChannel(ctx, SignalWake)

	ticks, crafted := 0, 0
	for {
		ticks++
		var out TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, chainID).Get(ctx, &out); err != nil {
			return err
		}

		switch services.FabricateOutcome(out.Outcome) {
		case services.OutcomeComplete, services.OutcomeInactive:
			log.Info("chain run finished", "chain_id", chainID, "outcome", out.Outcome)
			return nil
		case services.OutcomeFailed:
			return fmt.Errorf("chain %s failed at offset %d", chainID, out.Offset)
		case services.OutcomeCrafted:
			crafted++
			if crafted < maxCrafts {
				continue
			}
		}
		crafted = 0

		waitForWakeOrPoll(ctx, wakeCh, poll)
		if shouldContinueAsNew(ctx, ticks) {
			return workflow.NewContinueAsNewError(ctx, Workflow, in)
		}
	}
}

func waitForWakeOrPoll(ctx workflow.Context, ch workflow.ReceiveChannel, d time.Duration) {
	timerCtx, cancel := workflow.WithCancel(ctx)
	defer cancel()
	timer := workflow.NewTimer(timerCtx, d)
	sel := workflow.NewSelector(ctx)
	sel.AddReceive(ch, func(c workflow.ReceiveChannel, more bool) {
		var v any
		c.Receive(ctx, &v)
	})
	sel.AddFuture(timer, func(workflow.Future) {})
	sel.Select(ctx)
}

func shouldContinueAsNew(ctx workflow.Context, ticks int) bool {
	if ticks >= continueTickLimit {
		return true
	}
	info := workflow.GetInfo(ctx)
	return info != nil && info.GetCurrentHistoryLength() >= continueHistoryLimit
}
