package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/rs/zerolog"
)

const (
	helpMessage = "Прив =) ! Мои команды:\n" +
		"\n/today - узнать какие сериалы выходят сегодня" +
		"\n/tomorrow - узнать какие сериалы выходят завтра" +
		"\n/this_week - узнать какие сериалы выходят на этой неделе" +
		"\n/next_week - узнать какие сериалы выходят на следующей неделе" +
		"\n/wanted - список ожидаемых сериалов" +
		"\n/update - обновить даты выхода"

	failureMessage = "Не удалось получить данные, попробуйте позже =("
	busyMessage    = "Обновление уже идёт, попробуйте позже"
)

// Commands route les commandes du chat. Seul le propriétaire est servi.
type Commands struct {
	logger zerolog.Logger
	svc    *NotificationService
	owner  int64
}

func NewCommands(logger zerolog.Logger, svc *NotificationService, owner int64) *Commands {
	return &Commands{logger: logger, svc: svc, owner: owner}
}

// Handle renvoie la réponse à une commande (sans le "/" initial).
// ok=false: expéditeur non autorisé, aucune réponse ne doit être envoyée.
func (c *Commands) Handle(ctx context.Context, userID int64, command string) (string, bool) {
	if userID != c.owner {
		c.logger.Debug().Int64("user_id", userID).Str("command", command).Msg("unauthorized command ignored")
		return "", false
	}
	command = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(command), "/"))
	if i := strings.IndexByte(command, '@'); i >= 0 {
		command = command[:i]
	}
	c.logger.Info().Str("command", command).Msg("command received")

	switch command {
	case "start", "help":
		return helpMessage, true
	case "wanted":
		text, err := c.svc.Wanted(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("wanted list failed")
			return failureMessage, true
		}
		return text, true
	case "update":
		report, err := c.svc.TryReconcile(ctx)
		if errors.Is(err, ErrReconcileRunning) {
			return busyMessage, true
		}
		if err != nil {
			c.logger.Error().Err(err).Msg("reconciliation failed")
			return failureMessage, true
		}
		return FormatReport(report), true
	}

	window, err := domain.ParseWindow(command)
	if err != nil {
		return helpMessage, true
	}
	d, err := c.svc.Digest(ctx, window)
	if err != nil {
		c.logger.Error().Err(err).Str("window", string(window)).Msg("digest failed")
		return failureMessage, true
	}
	return d.Text(), true
}

func FormatReport(r domain.ReconcileReport) string {
	return fmt.Sprintf("Обновление завершено (%s):\n  получено %d\n  исправлено %d\n  добавлено %d\n  синхронизировано %d\n  записано %d\n  ошибок %d",
		r.Today, r.Fetched, r.Corrected, r.Inserted, r.Merged, r.WrittenBack, r.Failures)
}
