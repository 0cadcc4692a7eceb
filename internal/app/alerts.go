package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
	"github.com/rs/zerolog"
)

// ReconcileAlerter écoute le bus et prévient le propriétaire quand une passe échoue
// ou se termine avec des mutations abandonnées.
type ReconcileAlerter struct {
	logger    zerolog.Logger
	bus       ports.EventBus
	messenger ports.Messenger
	userID    int64
}

func NewReconcileAlerter(logger zerolog.Logger, bus ports.EventBus, messenger ports.Messenger, userID int64) *ReconcileAlerter {
	return &ReconcileAlerter{logger: logger, bus: bus, messenger: messenger, userID: userID}
}

type failedPayload struct {
	Error string `json:"error"`
	Today string `json:"today"`
}

func (a *ReconcileAlerter) Run(ctx context.Context) {
	if a == nil || a.bus == nil || a.messenger == nil {
		return
	}
	ch, cancel := a.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("reconcile alerter stopped")
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			a.handleEvent(ctx, evt)
		}
	}
}

func (a *ReconcileAlerter) handleEvent(ctx context.Context, evt ports.Event) {
	text, ok := alertText(evt)
	if !ok {
		return
	}
	if err := a.messenger.Send(ctx, a.userID, text); err != nil {
		a.logger.Warn().Err(err).Str("topic", evt.Topic).Msg("alert not delivered")
	}
}

func alertText(evt ports.Event) (string, bool) {
	switch evt.Topic {
	case ports.TopicReconcileFailed:
		var p failedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return "", false
		}
		return fmt.Sprintf("Обновление не удалось (%s): %s", p.Today, p.Error), true
	case ports.TopicReconcileCompleted:
		var r domain.ReconcileReport
		if err := json.Unmarshal(evt.Payload, &r); err != nil || r.Failures == 0 {
			return "", false
		}
		return fmt.Sprintf("Обновление завершено с ошибками (%s): %d из %d", r.Today, r.Failures, r.Fetched), true
	}
	return "", false
}
