package app

import (
	"context"
	"sync"
)

// Gate sérialise les passes de réconciliation: une seule à la fois dans le processus.
// Acquire respecte le contexte; TryAcquire n'attend pas.
type Gate struct {
	mu     sync.Mutex
	held   bool
	notify chan struct{}
}

func NewGate() *Gate {
	return &Gate{notify: make(chan struct{})}
}

func (g *Gate) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return false
	}
	g.held = true
	return true
}

func (g *Gate) Acquire(ctx context.Context) error {
	for {
		g.mu.Lock()
		if !g.held {
			g.held = true
			g.mu.Unlock()
			return nil
		}
		ch := g.notify
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
	// Réveille tous les waiters; le premier à reprendre le verrou gagne.
	close(g.notify)
	g.notify = make(chan struct{})
}
