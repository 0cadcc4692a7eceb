package memorybus

import (
	"sync"

	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
)

const subscriberBuffer = 32

// Bus diffuse les événements de réconciliation et de digest aux abonnés (flux SSE).
type Bus struct {
	mu      sync.Mutex
	subs    map[chan ports.Event]struct{}
	closed  bool
	dropped uint64
}

func New() *Bus {
	return &Bus{subs: make(map[chan ports.Event]struct{})}
}

func (b *Bus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	evt := ports.Event{Topic: topic, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// abonné trop lent
			b.dropped++
		}
	}
}

func (b *Bus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Close ferme tous les abonnements; les publications suivantes sont ignorées.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Dropped compte les événements perdus faute de place chez un abonné.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
