package app

import (
	"strings"
	"time"

	"github.com/yungbote/fabricator/internal/data/db"
	"github.com/yungbote/fabricator/internal/fabrication/lifecycle"
	"github.com/yungbote/fabricator/internal/jobs/worker"
	"github.com/yungbote/fabricator/internal/platform/envutil"
	"github.com/yungbote/fabricator/internal/temporalx"
)

const (
	SchedulerPoll     = "poll"
	SchedulerTemporal = "temporal"
)

type Config struct {
	LogMode     string
	ServiceName string
	Environment string
	HTTPAddr    string
	MetricsAddr string

	DB          db.Config
	LibraryPath string
	Lifecycle   lifecycle.Config
	// History is how many prior segments a craft pass may consult.
	History int

	Scheduler    string
	Worker       worker.Config
	Temporal     temporalx.Config
	TemporalPoll time.Duration

	RedisAddr    string
	RedisChannel string
	LeasePrefix  string
}

func LoadConfig() Config {
	return Config{
		LogMode:     envutil.String("LOG_MODE", "development"),
		ServiceName: envutil.String("SERVICE_NAME", "fabricator"),
		Environment: envutil.String("ENVIRONMENT", "local"),
		HTTPAddr:    envutil.String("HTTP_ADDR", ":8080"),
		MetricsAddr: envutil.String("METRICS_ADDR", ""),

		DB:          db.ConfigFromEnv(),
		LibraryPath: envutil.String("LIBRARY_PATH", ""),
		Lifecycle: lifecycle.Config{
			StartLead:        envutil.Seconds("CHAIN_START_LEAD_SECONDS", 5),
			PreviewLengthMax: time.Duration(envutil.Float("PREVIEW_LENGTH_MAX_HOURS", 1) * float64(time.Hour)),
			CompletionGrace:  envutil.Seconds("COMPLETION_GRACE_SECONDS", 0),
		},
		History: envutil.Int("CRAFT_HISTORY_SEGMENTS", 64),

		Scheduler: strings.ToLower(envutil.String("SCHEDULER", SchedulerPoll)),
		Worker: worker.Config{
			Concurrency:        envutil.Int("WORKER_CONCURRENCY", 4),
			Tick:               envutil.Seconds("WORKER_TICK_SECONDS", 1),
			LeaseTTL:           envutil.Seconds("WORKER_LEASE_TTL_SECONDS", 30),
			MaxSegmentsPerTick: envutil.Int("WORKER_MAX_SEGMENTS_PER_TICK", 4),
			StaleAfter:         envutil.Seconds("WORKER_STALE_CRAFTING_SECONDS", 120),
			RecoverEvery:       envutil.Seconds("WORKER_RECOVER_EVERY_SECONDS", 60),
		},
		Temporal:     temporalx.LoadConfig(),
		TemporalPoll: envutil.Millis("TEMPORAL_CHAIN_POLL_MS", 2000),

		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		RedisChannel: envutil.String("REDIS_CHANNEL", "fabrication"),
		LeasePrefix:  envutil.String("LEASE_PREFIX", "fabricator:lease:"),
	}
}
