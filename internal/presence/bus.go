package presence

import (
	"context"
	"sync"
)

// Bus is the cross-process fan-out contract. Each relay process only holds the
// sockets connected to itself, so a broadcast must travel through the Bus and
// be delivered locally by every subscribed process. A single-process in-memory
// implementation is valid only because it still routes every broadcast through
// the same publish/subscribe path.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(ctx context.Context, handler func(Envelope)) error
}

// MemoryBus is a single-process Bus. Publish invokes subscribers synchronously
// on the caller's goroutine; handlers must not block.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers []func(Envelope)
}

func NewMemoryBus() *MemoryBus { return &MemoryBus{} }

func (b *MemoryBus) Publish(_ context.Context, env Envelope) error {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()
	for _, h := range handlers {
		h(env)
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, handler func(Envelope)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
	return nil
}
