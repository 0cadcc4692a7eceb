package app

import (
	"sort"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
)

const (
	digestIntro  = "#Сериалы\n\n"
	digestIndent = "  "

	headerToday    = "Сегодня выходят следующие сериалы:\n\n"
	headerTomorrow = "Завтра выходят следующие сериалы:\n\n"
	headerThisWeek = "На этой неделе выходят:\n\n"
	headerReleased = "Уже вышли:\n\n"
	headerNextWeek = "На следующей неделе выходят:\n\n"
	headerWanted   = "Вот ожидаемые сериалы:\n\n"

	emptyToday    = "Сегодня ничего не выходит =("
	emptyTomorrow = "Завтра ничего не выходит =("
	emptyThisWeek = "На этой неделе ничего не выходит =("
	emptyNextWeek = "На следующей неделе ничего не выходит =("
	emptyWanted   = "Список ожидаемых пуст =("

	phraseReleasesToday    = "выходит сегодня"
	phraseReleasesTomorrow = "выходит завтра"
	phraseReleases         = "выходит"
	phraseReleased         = "вышел"
	phraseAlreadyAiring    = "уже выходит"
	phraseUnknownRelease   = "дата выхода не известна или он уже вышел"
)

// DigestEntry est une ligne de digest. Date est la date de sortie affichée.
type DigestEntry struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

// Digest est le résultat du classement pour une fenêtre.
// Released n'est alimenté que pour la semaine en cours.
type Digest struct {
	Window   domain.Window `json:"window"`
	Today    time.Time     `json:"today"`
	Released []DigestEntry `json:"released"`
	Upcoming []DigestEntry `json:"upcoming"`
}

func (d Digest) Empty() bool {
	return len(d.Released) == 0 && len(d.Upcoming) == 0
}

type classified struct {
	entry    DigestEntry
	released bool
	order    int
}

// Classify répartit les titres "en cours" dans la fenêtre demandée relativement à today.
// Un titre sans date exploitable est ignoré silencieusement.
func Classify(records []domain.Series, today time.Time, window domain.Window) (Digest, error) {
	today = domain.DateOf(today)
	var match func(s domain.Series, eff time.Time) (time.Time, bool, bool)

	switch window {
	case domain.WindowToday:
		match = exactDay(today)
	case domain.WindowTomorrow:
		match = exactDay(domain.AddDays(today, 1))
	case domain.WindowThisWeek:
		mon, sun := domain.WeekBounds(today, 0)
		match = func(_ domain.Series, eff time.Time) (time.Time, bool, bool) {
			if domain.InRange(eff, mon, sun) {
				return eff, true, eff.Before(today)
			}
			// Occurrence précédente passée cette semaine, date enregistrée déjà avancée d'une cadence.
			prev := domain.AddDays(eff, -domain.CadenceDays)
			if domain.InRange(prev, mon, sun) && prev.Before(today) {
				return prev, true, true
			}
			return time.Time{}, false, false
		}
	case domain.WindowNextWeek:
		mon, sun := domain.WeekBounds(today, 1)
		match = func(_ domain.Series, eff time.Time) (time.Time, bool, bool) {
			if domain.InRange(eff, mon, sun) {
				return eff, true, false
			}
			next := domain.AddDays(eff, domain.CadenceDays)
			if domain.InRange(next, mon, sun) {
				return next, true, false
			}
			return time.Time{}, false, false
		}
	default:
		return Digest{}, domain.ErrInvalidWindow
	}

	hits := make([]classified, 0)
	for i, s := range records {
		eff, ok := s.EffectiveAnchorDate()
		if !ok {
			continue
		}
		date, ok, released := match(s, domain.DateOf(eff))
		if !ok {
			continue
		}
		hits = append(hits, classified{
			entry:    DigestEntry{Name: s.Name, Date: date},
			released: released,
			order:    i,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if !hits[i].entry.Date.Equal(hits[j].entry.Date) {
			return hits[i].entry.Date.Before(hits[j].entry.Date)
		}
		return hits[i].order < hits[j].order
	})

	d := Digest{Window: window, Today: today, Released: []DigestEntry{}, Upcoming: []DigestEntry{}}
	for _, h := range hits {
		if h.released {
			d.Released = append(d.Released, h.entry)
		} else {
			d.Upcoming = append(d.Upcoming, h.entry)
		}
	}
	return d, nil
}

// exactDay: NextEpisodeDate == day, ou ReleaseDate == day quand NextEpisodeDate est absente.
func exactDay(day time.Time) func(s domain.Series, eff time.Time) (time.Time, bool, bool) {
	return func(s domain.Series, _ time.Time) (time.Time, bool, bool) {
		if s.HasNextEpisodeDate() {
			return day, domain.DateOf(s.NextEpisodeDate).Equal(day), false
		}
		return day, domain.DateOf(s.ReleaseDate).Equal(day), false
	}
}

// Text rend le digest sous forme de message lisible.
func (d Digest) Text() string {
	if d.Empty() {
		switch d.Window {
		case domain.WindowToday:
			return emptyToday
		case domain.WindowTomorrow:
			return emptyTomorrow
		case domain.WindowThisWeek:
			return emptyThisWeek
		default:
			return emptyNextWeek
		}
	}

	var b strings.Builder
	b.WriteString(digestIntro)
	switch d.Window {
	case domain.WindowToday:
		b.WriteString(headerToday)
		for _, e := range d.Upcoming {
			writeLine(&b, e.Name, phraseReleasesToday)
		}
	case domain.WindowTomorrow:
		b.WriteString(headerTomorrow)
		for _, e := range d.Upcoming {
			writeLine(&b, e.Name, phraseReleasesTomorrow)
		}
	case domain.WindowThisWeek:
		if len(d.Released) > 0 {
			b.WriteString(headerReleased)
			for _, e := range d.Released {
				writeLine(&b, e.Name, phraseReleased+" "+domain.DayLabel(domain.ISOWeekday(e.Date)))
			}
			b.WriteString("\n")
		}
		b.WriteString(headerThisWeek)
		for _, e := range d.Upcoming {
			writeLine(&b, e.Name, d.upcomingPhrase(e.Date))
		}
	case domain.WindowNextWeek:
		b.WriteString(headerNextWeek)
		for _, e := range d.Upcoming {
			writeLine(&b, e.Name, phraseReleases+" "+domain.DayLabel(domain.ISOWeekday(e.Date)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d Digest) upcomingPhrase(date time.Time) string {
	if date.Equal(d.Today) {
		return phraseReleasesToday
	}
	return phraseReleases + " " + domain.DayLabel(domain.ISOWeekday(date))
}

func writeLine(b *strings.Builder, name, phrase string) {
	b.WriteString(digestIndent)
	b.WriteString(name)
	if phrase != "" {
		b.WriteString(" ")
		b.WriteString(phrase)
	}
	b.WriteString("\n")
}

// RenderWanted liste les titres "à voir" avec leur date de sortie si connue.
func RenderWanted(records []domain.Series, today time.Time) string {
	today = domain.DateOf(today)
	var b strings.Builder
	n := 0
	for _, s := range records {
		if s.Status != domain.StatusWantToWatch {
			continue
		}
		if n == 0 {
			b.WriteString(digestIntro)
			b.WriteString(headerWanted)
		}
		n++
		switch {
		case !s.HasReleaseDate():
			writeLine(&b, s.Name, phraseUnknownRelease)
		case !domain.DateOf(s.ReleaseDate).After(today):
			writeLine(&b, s.Name, phraseAlreadyAiring)
		default:
			writeLine(&b, s.Name, phraseReleases+" "+domain.DateOf(s.ReleaseDate).Format(time.DateOnly))
		}
	}
	if n == 0 {
		return emptyWanted
	}
	return strings.TrimRight(b.String(), "\n")
}
