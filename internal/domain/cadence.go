package domain

import (
	"errors"
	"time"
)

// CadenceDays est la période fixe entre deux sorties.
const CadenceDays = 7

var ErrUndefinedAnchor = errors.New("undefined anchor date")

// DateOf tronque t à sa date civile dans son propre fuseau et la renvoie à minuit UTC.
// Toutes les comparaisons de dates du domaine se font sur ces valeurs.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today renvoie la date civile courante dans loc (UTC si nil).
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

func AddDays(d time.Time, days int) time.Time {
	return d.AddDate(0, 0, days)
}

// ISOWeekday: 1 = lundi ... 7 = dimanche.
func ISOWeekday(d time.Time) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// AdvanceToPresent ajoute la cadence à anchor tant que le résultat est strictement antérieur à today.
// today lui-même est un résultat valide.
func AdvanceToPresent(anchor, today time.Time) (time.Time, error) {
	if anchor.IsZero() {
		return time.Time{}, ErrUndefinedAnchor
	}
	d := DateOf(anchor)
	today = DateOf(today)
	if !d.Before(today) {
		return d, nil
	}
	// Saut direct au bon multiple, équivalent à la boucle d'incréments.
	days := int(today.Sub(d).Hours() / 24)
	periods := (days + CadenceDays - 1) / CadenceDays
	d = AddDays(d, periods*CadenceDays)
	for d.Before(today) {
		d = AddDays(d, CadenceDays)
	}
	return d, nil
}

// WeekBounds renvoie l'intervalle [lundi, dimanche] contenant reference + 7*offsetWeeks jours.
func WeekBounds(reference time.Time, offsetWeeks int) (time.Time, time.Time) {
	ref := AddDays(DateOf(reference), CadenceDays*offsetWeeks)
	monday := AddDays(ref, -(ISOWeekday(ref) - 1))
	return monday, AddDays(monday, 6)
}

// InRange: from <= d <= to.
func InRange(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

// CorrectRecurrence applique la correction de récurrence à un titre.
// changed=false si rien n'a été modifié (titre terminé, hors "en cours", ou déjà à jour).
func CorrectRecurrence(s Series, today time.Time) (Series, bool) {
	if !s.ActiveWatching() {
		return s, false
	}
	today = DateOf(today)

	switch {
	case s.HasNextEpisodeDate():
		if !s.NextEpisodeDate.Before(today) {
			return s, false
		}
		next, err := AdvanceToPresent(s.NextEpisodeDate, today)
		if err != nil {
			return s, false
		}
		s.NextEpisodeDate = next
		return s, true
	case s.HasReleaseDate():
		if !s.ReleaseDate.Before(today) {
			// Sortie à venir (ou aujourd'hui): la prochaine date est la sortie elle-même.
			s.NextEpisodeDate = DateOf(s.ReleaseDate)
			return s, true
		}
		next, err := AdvanceToPresent(s.ReleaseDate, today)
		if err != nil {
			return s, false
		}
		s.NextEpisodeDate = next
		return s, true
	default:
		return s, false
	}
}
