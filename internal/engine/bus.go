package engine

import (
	"sync"

	"github.com/notekeep/recovery/internal/core/domain"
)

// Bus is a typed publish/subscribe channel for error events. It replaces
// a string-keyed notification broadcast: observers that are not wired
// through Report directly (UI badges, diagnostics panels) subscribe here.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan domain.ErrorEvent
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan domain.ErrorEvent)}
}

// Subscribe registers an observer and returns its event channel together
// with an unsubscribe function. The channel is buffered; events published
// while the buffer is full are dropped for that subscriber.
func (b *Bus) Subscribe(buffer int) (<-chan domain.ErrorEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}

	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan domain.ErrorEvent, buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish delivers ev to all subscribers without blocking the caller.
func (b *Bus) Publish(ev domain.ErrorEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close unsubscribes everyone.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
