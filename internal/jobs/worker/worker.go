package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/jobs/lease"
	"github.com/yungbote/fabricator/internal/observability"
	"github.com/yungbote/fabricator/internal/platform/ctxutil"
	"github.com/yungbote/fabricator/internal/platform/logger"
	"github.com/yungbote/fabricator/internal/services"
)

// ChainLister yields the chains the worker should keep fabricating.
type ChainLister interface {
	ListFabricating(ctx context.Context) ([]*types.Chain, error)
}

type Fabricator interface {
	FabricateNext(ctx context.Context, chainID uuid.UUID, now time.Time) (services.FabricateResult, error)
	RecoverStale(ctx context.Context, olderThan time.Duration, now time.Time) (int, error)
}

type Config struct {
	Concurrency int
	Tick        time.Duration
	// LeaseTTL bounds how long a crashed worker can hold a chain.
	LeaseTTL time.Duration
	// MaxSegmentsPerTick caps the crafts one chain gets per tick so a long
	// buffer does not starve the others.
	MaxSegmentsPerTick int
	StaleAfter         time.Duration
	RecoverEvery       time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 4
	}
	if c.Tick <= 0 {
		c.Tick = time.Second
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 30 * time.Second
	}
	if c.MaxSegmentsPerTick < 1 {
		c.MaxSegmentsPerTick = 4
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 2 * time.Minute
	}
	if c.RecoverEvery <= 0 {
		c.RecoverEvery = time.Minute
	}
	return c
}

// Worker polls FABRICATE chains and keeps each one's buffer full.
type Worker struct {
	log     *logger.Logger
	chains  ChainLister
	fab     Fabricator
	locker  lease.Locker
	metrics *observability.Metrics
	cfg     Config
	now     func() time.Time

	lastRecover time.Time
}

func NewWorker(baseLog *logger.Logger, chains ChainLister, fab Fabricator, locker lease.Locker, metrics *observability.Metrics, cfg Config) *Worker {
	if locker == nil {
		locker = lease.NewLocal()
	}
	return &Worker{
		log:     baseLog.With("component", "FabricationWorker"),
		chains:  chains,
		fab:     fab,
		locker:  locker,
		metrics: metrics,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting fabrication worker",
		"concurrency", w.cfg.Concurrency,
		"tick", w.cfg.Tick.String(),
		"lease_backend", w.locker.Backend(),
	)
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Fabrication worker stopped")
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil && ctx.Err() == nil {
				w.log.Warn("Fabrication tick failed", "error", err)
			}
		}
	}
}

// Tick runs one pass over every fabricating chain.
func (w *Worker) Tick(ctx context.Context) error {
	now := w.now()
	if now.Sub(w.lastRecover) >= w.cfg.RecoverEvery {
		w.lastRecover = now
		if _, err := w.fab.RecoverStale(ctx, w.cfg.StaleAfter, now); err != nil {
			w.log.Warn("RecoverStale failed", "error", err)
		}
	}

	chains, err := w.chains.ListFabricating(ctx)
	if err != nil {
		w.metrics.IncWorkerTick("list_failed")
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, c := range chains {
		chainID := c.ID
		g.Go(func() error {
			w.runChain(gctx, chainID)
			return nil
		})
	}
	err = g.Wait()
	w.metrics.IncWorkerTick("ok")
	return err
}

func (w *Worker) runChain(ctx context.Context, chainID uuid.UUID) {
	ctx = ctxutil.WithChain(ctx, chainID.String(), "worker")
	release, ok, err := w.locker.Acquire(ctx, "chain:"+chainID.String(), w.cfg.LeaseTTL)
	if err != nil {
		w.log.Warn("Lease acquire failed", "chain_id", chainID, "error", err)
		return
	}
	if !ok {
		w.metrics.IncLeaseSkipped(w.locker.Backend())
		return
	}
	defer release()

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Fabrication panic", "chain_id", chainID, "panic", fmt.Sprint(r))
			w.metrics.IncWorkerTick("panic")
		}
	}()

	for i := 0; i < w.cfg.MaxSegmentsPerTick; i++ {
		if ctx.Err() != nil {
			return
		}
		res, err := w.fab.FabricateNext(ctx, chainID, w.now())
		if err != nil {
			w.log.Warn("FabricateNext failed", "chain_id", chainID, "error", err)
			return
		}
		if res.Outcome != services.OutcomeCrafted {
			return
		}
	}
}
