package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/platform/logger"
	"github.com/yungbote/fabricator/internal/temporalx"
	"github.com/yungbote/fabricator/internal/temporalx/chainrun"
)

type ChainLister interface {
	ListFabricating(ctx context.Context) ([]*types.Chain, error)
}

type Options struct {
	Concurrency  int
	PollInterval time.Duration
	// DispatchEvery is how often FABRICATE chains are checked for a running workflow.
	DispatchEvery time.Duration
	StartMaxWait  time.Duration
}

type Runner struct {
	log    *logger.Logger
	tc     temporalsdkclient.Client
	cfg    temporalx.Config
	opts   Options
	chains ChainLister
	fab    chainrun.Fabricator
}

func NewRunner(
	log *logger.Logger,
	tc temporalsdkclient.Client,
	cfg temporalx.Config,
	chains ChainLister,
	fab chainrun.Fabricator,
	opts Options,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if chains == nil || fab == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.DispatchEvery <= 0 {
		opts.DispatchEvery = 10 * time.Second
	}
	if opts.StartMaxWait <= 0 {
		opts.StartMaxWait = time.Minute
	}
	return &Runner{
		log:    log.With("component", "TemporalWorker"),
		tc:     tc,
		cfg:    cfg,
		opts:   opts,
		chains: chains,
		fab:    fab,
	}, nil
}

// Start polls the task queue and launches the chain dispatcher. It returns
// once the worker is running; both stop with ctx.
func (r *Runner) Start(ctx context.Context) error {
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	deadline := time.Now().Add(r.opts.StartMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			go r.dispatchLoop(ctx)
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.log, r.cfg); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}
		if time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "attempt", attempt, "error", startErr)
		time.Sleep(temporalx.Backoff(r.cfg.DialBackoff, r.cfg.DialBackoffMax, attempt))
	}
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.opts.Concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.opts.Concurrency,
	})
	acts := &chainrun.Activities{Log: r.log, Fabrication: r.fab}
	w.RegisterWorkflowWithOptions(chainrun.Workflow, workflow.RegisterOptions{Name: chainrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Tick, activity.RegisterOptions{Name: chainrun.ActivityTick})
	return w
}

func (r *Runner) dispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(r.opts.DispatchEvery)
	defer ticker.Stop()
	for {
		if err := r.Dispatch(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("chain dispatch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Dispatch makes sure every FABRICATE chain has a running chain workflow.
// Starting an already running workflow id returns the existing run.
func (r *Runner) Dispatch(ctx context.Context) error {
	chains, err := r.chains.ListFabricating(ctx)
	if err != nil {
		return err
	}
	for _, c := range chains {
		opts := temporalsdkclient.StartWorkflowOptions{
			ID:                    chainrun.WorkflowIDPrefix + c.ID.String(),
			TaskQueue:             r.cfg.TaskQueue,
			WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		}
		in := chainrun.Input{ChainID: c.ID.String(), PollInterval: r.opts.PollInterval}
		if _, err := r.tc.ExecuteWorkflow(ctx, opts, chainrun.WorkflowName, in); err != nil {
			r.log.Warn("start chain workflow failed", "chain_id", c.ID, "error", err)
		}
	}
	return nil
}

// Wake signals a chain's workflow to tick now instead of after its poll sleep.
func (r *Runner) Wake(ctx context.Context, chainID string) error {
	return r.tc.SignalWorkflow(ctx, chainrun.WorkflowIDPrefix+chainID, "", chainrun.SignalWake, nil)
}
