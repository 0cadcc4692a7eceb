package domain

import "time"

// ReminderDays: une échéance est signalée jusqu'à deux jours à l'avance.
const ReminderDays = 2

// Subscription est un abonnement payant suivi dans la seconde base Notion.
type Subscription struct {
	ID     string
	Name   string
	Family bool
	Yearly bool
	// Price est le prix complet; TotalPay la part payée par le propriétaire.
	Price      float64
	TotalPay   float64
	ChargeDate time.Time
}

func (s Subscription) HasChargeDate() bool { return !s.ChargeDate.IsZero() }

// DaysUntilCharge est négatif quand l'échéance est dépassée.
func (s Subscription) DaysUntilCharge(today time.Time) int {
	return int(DateOf(s.ChargeDate).Sub(DateOf(today)).Hours() / 24)
}

// Due: échéance connue, dépassée ou à au plus ReminderDays jours.
func (s Subscription) Due(today time.Time) bool {
	return s.HasChargeDate() && s.DaysUntilCharge(today) <= ReminderDays
}
