package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGate_AcquireRelease(t *testing.T) {
	g := NewGate()

	ctx := context.Background()
	if err := g.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		_ = g.Acquire(ctx)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatalf("second acquire should block")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()
	select {
	case <-acquired:
	case <-time.After(250 * time.Millisecond):
		t.Fatalf("second acquire should have proceeded")
	}

	g.Release()
	if g.Held() {
		t.Fatalf("gate should be free")
	}
}

func TestGate_TryAcquire(t *testing.T) {
	g := NewGate()
	if !g.TryAcquire() {
		t.Fatalf("first TryAcquire should succeed")
	}
	if g.TryAcquire() {
		t.Fatalf("second TryAcquire should fail while held")
	}
	g.Release()
	if !g.TryAcquire() {
		t.Fatalf("TryAcquire after Release should succeed")
	}
}

func TestGate_AcquireHonoursContext(t *testing.T) {
	g := NewGate()
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer g.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
