package notion

import (
	"context"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
)

type SubscriptionOptions struct {
	DatabaseID string
	Properties SubscriptionProperties
}

// SubscriptionProperties nomme les colonnes et les options de la base des abonnements.
type SubscriptionProperties struct {
	Title      string `mapstructure:"title"`
	Type       string `mapstructure:"type"`
	Price      string `mapstructure:"price"`
	TotalPay   string `mapstructure:"total_pay"`
	Period     string `mapstructure:"period"`
	ChargeDate string `mapstructure:"charge_date"`
	Family     string `mapstructure:"family"`
	Yearly     string `mapstructure:"yearly"`
}

func DefaultSubscriptionProperties() SubscriptionProperties {
	return SubscriptionProperties{
		Title:      "Подписка",
		Type:       "Тип",
		Price:      "Цена",
		TotalPay:   "Я плочу",
		Period:     "Период",
		ChargeDate: "Дата списания",
		Family:     "Семейная подписка",
		Yearly:     "Годовая",
	}
}

// Subscriptions implémente ports.SubscriptionSource sur la seconde base.
func (c *Catalog) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	sub := c.opts.Subscriptions
	if c.opts.Token == "" || sub.DatabaseID == "" {
		return nil, ErrNotConfigured
	}
	props := sub.Properties
	out := make([]domain.Subscription, 0)
	err := c.query(ctx, sub.DatabaseID, func(p page) {
		name := p.title(props.Title)
		if !name.ok {
			c.logger.Warn().Err(errMissingTitle).Str("page_id", p.ID).Msg("subscription skipped")
			return
		}
		charge, err := p.date(props.ChargeDate)
		if err != nil {
			c.logger.Warn().Err(err).Str("page_id", p.ID).Msg("subscription skipped")
			return
		}
		out = append(out, domain.Subscription{
			ID:         p.ID,
			Name:       name.value,
			Family:     p.selectName(props.Type).Or("") == props.Family,
			Yearly:     p.selectName(props.Period).Or("") == props.Yearly,
			Price:      p.amount(props.Price).Or(0),
			TotalPay:   p.amount(props.TotalPay).Or(0),
			ChargeDate: charge.Or(time.Time{}),
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
