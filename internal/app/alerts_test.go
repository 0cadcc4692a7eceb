package app

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
	"github.com/rs/zerolog"
)

func TestReconcileAlerter_SendsOnFailureOnly(t *testing.T) {
	bus := newFakeBus()
	msg := &fakeMessenger{}
	a := NewReconcileAlerter(zerolog.Nop(), bus, msg, 42)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	bus.waitSubscribers(t, 1)

	ok, _ := json.Marshal(domain.ReconcileReport{Today: "2022-07-21", Fetched: 3})
	partial, _ := json.Marshal(domain.ReconcileReport{Today: "2022-07-21", Fetched: 3, Failures: 1})
	bus.Publish(ports.TopicReconcileCompleted, ok)
	bus.Publish(ports.TopicDigestSent, []byte(`{}`))
	bus.Publish(ports.TopicReconcileCompleted, partial)
	bus.Publish(ports.TopicReconcileFailed, []byte(`{"error":"list catalog: boom","today":"2022-07-21"}`))

	deadline := time.Now().Add(2 * time.Second)
	for len(msg.sentTexts()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	sent := msg.sentTexts()
	if len(sent) != 2 {
		t.Fatalf("expected 2 alerts, got %d: %q", len(sent), sent)
	}
	if !strings.Contains(sent[0], "1 из 3") {
		t.Fatalf("unexpected partial-failure alert: %q", sent[0])
	}
	if !strings.Contains(sent[1], "boom") {
		t.Fatalf("unexpected failure alert: %q", sent[1])
	}
	if msg.lastUser() != 42 {
		t.Fatalf("alert sent to %d", msg.lastUser())
	}
}
