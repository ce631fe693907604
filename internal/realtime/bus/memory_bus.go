package bus

import (
	"context"
	"sync"

	"github.com/yungbote/fabricator/internal/realtime"
)

// memoryHistory bounds the events a long-running process keeps for Published.
const memoryHistory = 1024

// MemoryBus delivers events synchronously to in-process subscribers. It backs
// single-process runs without redis and tests.
type MemoryBus struct {
	mu   sync.RWMutex
	subs []func(realtime.Event)
	log  []realtime.Event
}

func NewMemoryBus() *MemoryBus { return &MemoryBus{} }

func (b *MemoryBus) Publish(ctx context.Context, ev realtime.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	b.log = append(b.log, ev)
	if n := len(b.log) - memoryHistory; n > 0 {
		b.log = append(b.log[:0], b.log[n:]...)
	}
	subs := append([]func(realtime.Event){}, b.subs...)
	b.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
	return nil
}

func (b *MemoryBus) StartForwarder(_ context.Context, onEvent func(ev realtime.Event)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, onEvent)
	return nil
}

// Published returns a copy of the most recent events, oldest first.
func (b *MemoryBus) Published() []realtime.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]realtime.Event(nil), b.log...)
}

func (b *MemoryBus) Close() error { return nil }
