package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
	"github.com/rs/zerolog"
)

const subscriptionsHeader = "#Подписки \n\nСкоро нужно оплатить следующие подписки:\n\n"

// SubscriptionReminder prévient le propriétaire des abonnements à payer sous peu.
type SubscriptionReminder struct {
	logger    zerolog.Logger
	source    ports.SubscriptionSource
	messenger ports.Messenger
	userID    int64
	location  *time.Location
	// Now est injectable pour les tests.
	Now func() time.Time
}

func NewSubscriptionReminder(logger zerolog.Logger, source ports.SubscriptionSource, messenger ports.Messenger, userID int64, loc *time.Location) *SubscriptionReminder {
	return &SubscriptionReminder{
		logger:    logger,
		source:    source,
		messenger: messenger,
		userID:    userID,
		location:  loc,
		Now:       time.Now,
	}
}

// Send envoie le rappel et renvoie le nombre d'échéances signalées.
// Rien n'est envoyé quand aucune échéance n'est proche.
func (r *SubscriptionReminder) Send(ctx context.Context) (int, error) {
	if r.messenger == nil {
		return 0, ErrMessengerNotConfigured
	}
	subs, err := r.source.Subscriptions(ctx)
	if err != nil {
		return 0, err
	}
	today := domain.Today(r.Now(), r.location)
	text, n := RenderSubscriptions(subs, today)
	if n == 0 {
		r.logger.Debug().Int("subscriptions", len(subs)).Msg("no subscription due")
		return 0, nil
	}
	if err := r.messenger.Send(ctx, r.userID, text); err != nil {
		return 0, err
	}
	r.logger.Info().Int("due", n).Msg("subscription reminder sent")
	return n, nil
}

// RenderSubscriptions liste les échéances proches, la plus ancienne d'abord.
func RenderSubscriptions(subs []domain.Subscription, today time.Time) (string, int) {
	due := make([]domain.Subscription, 0, len(subs))
	for _, s := range subs {
		if s.Due(today) {
			due = append(due, s)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].ChargeDate.Before(due[j].ChargeDate)
	})

	var b strings.Builder
	b.WriteString(subscriptionsHeader)
	for _, s := range due {
		period := "ежемесячная"
		if s.Yearly {
			period = "годовая"
		}
		date := domain.DateOf(s.ChargeDate).Format("02-01-2006")
		if s.Family {
			fmt.Fprintf(&b, "  %s к оплате %s руб. до %s\n  Это семейная %s подписка, нужно попросить денег с членов семьи\n\n",
				s.Name, formatAmount(s.Price), date, period)
			continue
		}
		fmt.Fprintf(&b, "  %s к оплате %s руб. до %s\n  Это личная %s подписка\n\n",
			s.Name, formatAmount(s.TotalPay), date, period)
	}
	return b.String(), len(due)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
