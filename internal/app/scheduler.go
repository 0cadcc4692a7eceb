package app

import (
	"context"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/rs/zerolog"
)

type dailyJob struct {
	name  string
	times []domain.ClockTime
	run   func(ctx context.Context)
	next  time.Time
}

// DailyScheduler déclenche des jobs à heures fixes (heure murale de loc).
// Les jobs s'exécutent séquentiellement dans la goroutine de Run.
type DailyScheduler struct {
	logger zerolog.Logger
	loc    *time.Location
	jobs   []*dailyJob

	TickInterval time.Duration
	Now          func() time.Time
}

func NewDailyScheduler(logger zerolog.Logger, loc *time.Location) *DailyScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyScheduler{
		logger:       logger,
		loc:          loc,
		TickInterval: 20 * time.Second,
		Now:          time.Now,
	}
}

func (sch *DailyScheduler) Add(name string, times []domain.ClockTime, run func(ctx context.Context)) {
	if len(times) == 0 || run == nil {
		return
	}
	sch.jobs = append(sch.jobs, &dailyJob{name: name, times: times, run: run})
}

func (sch *DailyScheduler) Run(ctx context.Context) {
	sch.plan(sch.Now())

	interval := sch.TickInterval
	if interval <= 0 {
		interval = 20 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sch.logger.Info().Msg("daily scheduler stopped")
			return
		case <-ticker.C:
			sch.tick(ctx)
		}
	}
}

func (sch *DailyScheduler) plan(now time.Time) {
	for _, j := range sch.jobs {
		j.next = domain.NextOccurrence(j.times, now, sch.loc)
		sch.logger.Info().Str("job", j.name).Time("next", j.next).Msg("job scheduled")
	}
}

func (sch *DailyScheduler) tick(ctx context.Context) {
	now := sch.Now()
	for _, j := range sch.jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if j.next.IsZero() || now.Before(j.next) {
			continue
		}

		sch.logger.Info().Str("job", j.name).Msg("job triggered")
		j.run(ctx)
		// Replanifie depuis l'heure courante: une échéance manquée n'est rejouée qu'une fois.
		j.next = domain.NextOccurrence(j.times, sch.Now(), sch.loc)
	}
}
