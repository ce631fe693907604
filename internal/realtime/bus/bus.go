package bus

import (
	"context"

	"github.com/yungbote/fabricator/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}

// Nop drops every event. It is used when no bus is configured.
type Nop struct{}

func (Nop) Publish(context.Context, realtime.Event) error { return nil }

func (Nop) StartForwarder(context.Context, func(realtime.Event)) error { return nil }

func (Nop) Close() error { return nil }
