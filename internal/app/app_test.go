package app

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/fabricator/internal/platform/logger"
	"github.com/yungbote/fabricator/internal/realtime"
	"github.com/yungbote/fabricator/internal/realtime/bus"
)

func TestOpenBusWithoutRedisDeliversInProcess(t *testing.T) {
	b, rdb, err := openBus(logger.Nop(), Config{})
	if err != nil {
		t.Fatalf("openBus: %v", err)
	}
	if rdb != nil {
		t.Fatalf("redis client opened without REDIS_ADDR")
	}
	if _, ok := b.(*bus.MemoryBus); !ok {
		t.Fatalf("bus = %T, want *bus.MemoryBus", b)
	}

	var woke []uuid.UUID
	if err := b.StartForwarder(context.Background(), func(ev realtime.Event) {
		if ev.Type == realtime.EventSegmentDubbed {
			woke = append(woke, ev.ChainID)
		}
	}); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	chainID := uuid.New()
	if err := b.Publish(context.Background(), realtime.Event{Type: realtime.EventSegmentDubbed, ChainID: chainID}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(woke) != 1 || woke[0] != chainID {
		t.Fatalf("forwarded = %v", woke)
	}
}
