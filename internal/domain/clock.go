package domain

import (
	"fmt"
	"time"
)

// ClockTime est une heure murale quotidienne (HH:MM).
type ClockTime struct {
	Hour   int
	Minute int
}

func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid time of day %q (want HH:MM): %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func ParseClockTimes(values []string) ([]ClockTime, error) {
	out := make([]ClockTime, 0, len(values))
	for _, v := range values {
		ct, err := ParseClockTime(v)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// NextOccurrence renvoie le premier instant strictement après `after` correspondant à l'une des heures, dans loc.
func NextOccurrence(times []ClockTime, after time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := after.In(loc)
	var best time.Time
	for _, ct := range times {
		cand := time.Date(local.Year(), local.Month(), local.Day(), ct.Hour, ct.Minute, 0, 0, loc)
		if !cand.After(local) {
			cand = time.Date(local.Year(), local.Month(), local.Day()+1, ct.Hour, ct.Minute, 0, 0, loc)
		}
		if best.IsZero() || cand.Before(best) {
			best = cand
		}
	}
	return best
}
