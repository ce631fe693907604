package app

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SCHEDULER", "Temporal")
	t.Setenv("WORKER_CONCURRENCY", "9")
	t.Setenv("PREVIEW_LENGTH_MAX_HOURS", "0.5")
	t.Setenv("CHAIN_START_LEAD_SECONDS", "-3")
	t.Setenv("DB_DRIVER", "SQLite")

	cfg := LoadConfig()
	if cfg.Scheduler != SchedulerTemporal {
		t.Fatalf("Scheduler = %q", cfg.Scheduler)
	}
	if cfg.Worker.Concurrency != 9 {
		t.Fatalf("Concurrency = %d", cfg.Worker.Concurrency)
	}
	if cfg.Lifecycle.PreviewLengthMax != 30*time.Minute {
		t.Fatalf("PreviewLengthMax = %v", cfg.Lifecycle.PreviewLengthMax)
	}
	if cfg.Lifecycle.StartLead != 0 {
		t.Fatalf("negative lead should clamp to 0, got %v", cfg.Lifecycle.StartLead)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Fatalf("DB.Driver = %q", cfg.DB.Driver)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"SCHEDULER", "HTTP_ADDR", "REDIS_CHANNEL", "TEMPORAL_TASK_QUEUE"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	if cfg.Scheduler != SchedulerPoll || cfg.HTTPAddr != ":8080" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RedisChannel != "fabrication" || cfg.Temporal.TaskQueue != "fabrication" {
		t.Fatalf("redis channel %q, task queue %q", cfg.RedisChannel, cfg.Temporal.TaskQueue)
	}
	if cfg.Worker.Tick != time.Second {
		t.Fatalf("Tick = %v", cfg.Worker.Tick)
	}
}
