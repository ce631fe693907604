// Package lease keeps two schedulers from fabricating the same chain at once.
package lease

import (
	"context"
	"sync"
	"time"
)

// Locker grants short exclusive leases on string keys. A lease that is not
// released expires after its ttl.
type Locker interface {
	// Acquire reports ok=false without error when another holder owns key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
	Backend() string
}

// Local is an in-process Locker.
type Local struct {
	mu     sync.Mutex
	held   map[string]localHold
	now    func() time.Time
	serial uint64
}

type localHold struct {
	serial  uint64
	expires time.Time
}

func NewLocal() *Local {
	return &Local{held: map[string]localHold{}, now: time.Now}
}

func (l *Local) Backend() string { return "local" }

func (l *Local) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if h, ok := l.held[key]; ok && now.Before(h.expires) {
		return nil, false, nil
	}
	l.serial++
	mine := l.serial
	l.held[key] = localHold{serial: mine, expires: now.Add(ttl)}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if h, ok := l.held[key]; ok && h.serial == mine {
			delete(l.held, key)
		}
	}, true, nil
}
