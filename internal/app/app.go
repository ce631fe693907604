package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/yungbote/fabricator/internal/content"
	dataagg "github.com/yungbote/fabricator/internal/data/aggregates"
	"github.com/yungbote/fabricator/internal/data/db"
	"github.com/yungbote/fabricator/internal/data/repos"
	httpserver "github.com/yungbote/fabricator/internal/http"
	httpH "github.com/yungbote/fabricator/internal/http/handlers"
	"github.com/yungbote/fabricator/internal/jobs/lease"
	"github.com/yungbote/fabricator/internal/jobs/worker"
	"github.com/yungbote/fabricator/internal/observability"
	"github.com/yungbote/fabricator/internal/platform/logger"
	"github.com/yungbote/fabricator/internal/realtime"
	"github.com/yungbote/fabricator/internal/realtime/bus"
	"github.com/yungbote/fabricator/internal/services"
	"github.com/yungbote/fabricator/internal/temporalx"
	"github.com/yungbote/fabricator/internal/temporalx/temporalworker"
)

type Services struct {
	Chains      services.ChainService
	Segments    services.SegmentService
	Fabrication services.FabricationService
}

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *gorm.DB
	Repos    repos.Set
	Services Services
	Metrics  *observability.Metrics
	Bus      bus.Bus
	Server   *httpserver.Server
	Library  *content.Library

	dbService    *db.Service
	redis        *goredis.Client
	locker       lease.Locker
	temporal     temporalsdkclient.Client
	worker       *worker.Worker
	runner       *temporalworker.Runner
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// New wires the fabricator from environment configuration. The caller owns
// Close.
func New(ctx context.Context) (*App, error) {
	return build(ctx, LoadConfig(), true)
}

// NewCore wires storage and services only, for command line tools that act on
// chains without running a scheduler or the ops API.
func NewCore(ctx context.Context, cfg Config) (*App, error) {
	return build(ctx, cfg, false)
}

func build(ctx context.Context, cfg Config, runtime bool) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &App{Log: log, Cfg: cfg}
	err = a.wireCore(ctx)
	if err == nil && runtime {
		err = a.wireRuntime(ctx)
	}
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wireCore(ctx context.Context) error {
	cfg, log := a.Cfg, a.Log

	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	})
	a.Metrics = observability.Init(log)

	dbs, err := db.Open(log, cfg.DB)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.dbService = dbs
	a.DB = dbs.DB()
	if err := db.AutoMigrateAll(a.DB); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	lib, err := loadLibrary(cfg.LibraryPath)
	if err != nil {
		return err
	}
	a.Library = lib
	log.Info("library loaded", "path", cfg.LibraryPath, "entities", lib.Snapshot.Size())

	var locker lease.Locker = lease.NewLocal()
	a.Bus, a.redis, err = openBus(log, cfg)
	if err != nil {
		return err
	}
	if a.redis != nil {
		locker = lease.NewRedis(a.redis, cfg.LeasePrefix, log)
	}

	a.Repos = repos.NewSet(a.DB, log)
	base := dataagg.BaseDeps{DB: a.DB, Log: log, Hooks: dataagg.NewMetricsHooks(a.Metrics)}
	chainAgg := dataagg.NewChainAggregate(dataagg.ChainAggregateDeps{
		Base:      base,
		Lifecycle: cfg.Lifecycle,
		Chains:    a.Repos.Chains,
		Segments:  a.Repos.Segments,
		Craft:     a.Repos.Craft,
	})
	segAgg := dataagg.NewSegmentAggregate(dataagg.SegmentAggregateDeps{
		Base:     base,
		Chains:   a.Repos.Chains,
		Segments: a.Repos.Segments,
		Craft:    a.Repos.Craft,
	})

	chains := services.NewChainService(log, a.Repos, chainAgg, cfg.Lifecycle, a.Bus, a.Metrics)
	segments := services.NewSegmentService(log, a.Repos, segAgg, a.Bus)
	fab := services.NewFabricationService(services.FabricationDeps{
		Log:      log,
		Repos:    a.Repos,
		Chains:   chains,
		Segments: segments,
		Content:  services.NewLibraryContent(lib),
		Metrics:  a.Metrics,
		History:  cfg.History,
	})
	a.Services = Services{Chains: chains, Segments: segments, Fabrication: fab}
	a.locker = locker
	return nil
}

func (a *App) wireRuntime(ctx context.Context) error {
	cfg, log := a.Cfg, a.Log
	chains, segments, fab := a.Services.Chains, a.Services.Segments, a.Services.Fabrication

	switch cfg.Scheduler {
	case SchedulerTemporal:
		tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
		if err != nil {
			return err
		}
		if tc == nil {
			return fmt.Errorf("SCHEDULER=temporal requires TEMPORAL_ADDRESS")
		}
		a.temporal = tc
		a.runner, err = temporalworker.NewRunner(log, tc, cfg.Temporal, chains, fab, temporalworker.Options{
			Concurrency:  cfg.Worker.Concurrency,
			PollInterval: cfg.TemporalPoll,
		})
		if err != nil {
			return err
		}
	case SchedulerPoll, "":
		a.worker = worker.NewWorker(log, chains, fab, a.locker, a.Metrics, cfg.Worker)
	default:
		return fmt.Errorf("unknown SCHEDULER %q", cfg.Scheduler)
	}

	checks := map[string]httpH.ReadyCheck{
		"db": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	a.Server = httpserver.NewServer(httpserver.RouterConfig{
		ServiceName:   cfg.ServiceName,
		Log:           log,
		Metrics:       a.Metrics,
		HealthHandler: httpH.NewHealthHandler(checks),
		ChainHandler:  httpH.NewChainHandler(chains, segments),
	})
	return nil
}

func loadLibrary(path string) (*content.Library, error) {
	if path == "" {
		return content.SampleLibrary()
	}
	return content.LoadLibrary(path)
}

// Run starts the scheduler and serves the ops API until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	a.Metrics.StartRedisCollector(ctx, a.Log, a.redis)
	if a.Cfg.MetricsAddr != "" {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	}

	switch {
	case a.runner != nil:
		if err := a.runner.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
		// A dubbed segment frees buffer room; wake the chain instead of waiting for its poll.
		if err := a.Bus.StartForwarder(ctx, func(ev realtime.Event) {
			if ev.Type != realtime.EventSegmentDubbed {
				return
			}
			if err := a.runner.Wake(ctx, ev.ChainID.String()); err != nil {
				a.Log.Debug("wake chain workflow", "chain_id", ev.ChainID, "error", err)
			}
		}); err != nil {
			a.Log.Warn("event forwarder not started", "error", err)
		}
	case a.worker != nil:
		a.worker.Start(ctx)
	}

	a.Log.Info("fabricator running", "http_addr", a.Cfg.HTTPAddr, "scheduler", a.Cfg.Scheduler)
	return a.Server.Run(ctx, a.Cfg.HTTPAddr)
}

// openBus connects the redis bus when REDIS_ADDR is set. Without it events
// stay in process, which still wakes chains on a single node.
func openBus(log *logger.Logger, cfg Config) (bus.Bus, *goredis.Client, error) {
	if cfg.RedisAddr == "" {
		return bus.NewMemoryBus(), nil, nil
	}
	b, rdb, err := bus.NewRedisBus(log, bus.RedisConfig{Addr: cfg.RedisAddr, Channel: cfg.RedisChannel})
	if err != nil {
		return nil, nil, fmt.Errorf("init redis: %w", err)
	}
	return b, rdb, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.temporal != nil {
		a.temporal.Close()
		a.temporal = nil
	}
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			a.Log.Warn("close bus", "error", err)
		}
		a.Bus = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
		cancel()
		a.otelShutdown = nil
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("close database", "error", err)
		}
		a.dbService = nil
	}
	a.Log.Sync()
}
