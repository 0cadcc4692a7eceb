package app

import (
	"errors"
	"testing"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
)

// jeudi 2022-07-21, semaine du lundi 07-18 au dimanche 07-24.
var digestToday = day(2022, 7, 21)

func digestRecords() []domain.Series {
	return []domain.Series{
		{Name: "A", Status: domain.StatusWatching, NextEpisodeDate: day(2022, 7, 21)},
		{Name: "B", Status: domain.StatusWatching, NextEpisodeDate: day(2022, 7, 22)},
		{Name: "C", Status: domain.StatusWatching, NextEpisodeDate: day(2022, 7, 25)},
		{Name: "D", Status: domain.StatusWatching, IsFinished: true, NextEpisodeDate: day(2022, 7, 21)},
		{Name: "E", Status: domain.StatusWantToWatch, ReleaseDate: day(2022, 7, 21)},
		{Name: "F", Status: domain.StatusWatching, ReleaseDate: day(2022, 7, 22)},
		{Name: "G", Status: domain.StatusWatching},
	}
}

func names(entries []DigestEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func equalNames(got []DigestEntry, want ...string) bool {
	n := names(got)
	if len(n) != len(want) {
		return false
	}
	for i := range n {
		if n[i] != want[i] {
			return false
		}
	}
	return true
}

func TestClassify_Today(t *testing.T) {
	d, err := Classify(digestRecords(), digestToday, domain.WindowToday)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !equalNames(d.Upcoming, "A") || len(d.Released) != 0 {
		t.Fatalf("unexpected digest: %+v", d)
	}
	want := "#Сериалы\n\nСегодня выходят следующие сериалы:\n\n  A выходит сегодня"
	if got := d.Text(); got != want {
		t.Fatalf("unexpected text:\n%q\nwant\n%q", got, want)
	}
}

func TestClassify_TomorrowUsesReleaseDateWhenNextUnset(t *testing.T) {
	d, err := Classify(digestRecords(), digestToday, domain.WindowTomorrow)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !equalNames(d.Upcoming, "B", "F") {
		t.Fatalf("unexpected upcoming: %v", names(d.Upcoming))
	}
	want := "#Сериалы\n\nЗавтра выходят следующие сериалы:\n\n  B выходит завтра\n  F выходит завтра"
	if got := d.Text(); got != want {
		t.Fatalf("unexpected text:\n%q", got)
	}
}

func TestClassify_ThisWeekSplitsReleased(t *testing.T) {
	d, err := Classify(digestRecords(), digestToday, domain.WindowThisWeek)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	// C est déjà avancée au lundi suivant: l'occurrence de lundi 07-18 est passée.
	if !equalNames(d.Released, "C") {
		t.Fatalf("unexpected released: %v", names(d.Released))
	}
	if !d.Released[0].Date.Equal(day(2022, 7, 18)) {
		t.Fatalf("released date = %v", d.Released[0].Date)
	}
	if !equalNames(d.Upcoming, "A", "B", "F") {
		t.Fatalf("unexpected upcoming: %v", names(d.Upcoming))
	}

	want := "#Сериалы\n\n" +
		"Уже вышли:\n\n  C вышел в понедельник\n\n" +
		"На этой неделе выходят:\n\n  A выходит сегодня\n  B выходит в пятницу\n  F выходит в пятницу"
	if got := d.Text(); got != want {
		t.Fatalf("unexpected text:\n%q\nwant\n%q", got, want)
	}
}

func TestClassify_ThisWeekReleasedBeforeTodayWithoutCorrection(t *testing.T) {
	records := []domain.Series{
		{Name: "Tue", Status: domain.StatusWatching, NextEpisodeDate: day(2022, 7, 19)},
		{Name: "Sun", Status: domain.StatusWatching, NextEpisodeDate: day(2022, 7, 24)},
	}
	d, err := Classify(records, digestToday, domain.WindowThisWeek)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !equalNames(d.Released, "Tue") || !equalNames(d.Upcoming, "Sun") {
		t.Fatalf("unexpected digest: released=%v upcoming=%v", names(d.Released), names(d.Upcoming))
	}
}

func TestClassify_PreviousWeekDate(t *testing.T) {
	// Vendredi dernier, corrigé au vendredi 07-22 par la passe.
	stale := domain.Series{Name: "X", Status: domain.StatusWatching, NextEpisodeDate: day(2022, 7, 15)}
	corrected, changed := domain.CorrectRecurrence(stale, digestToday)
	if !changed || !corrected.NextEpisodeDate.Equal(day(2022, 7, 22)) {
		t.Fatalf("unexpected correction: %+v", corrected)
	}

	if d, _ := Classify([]domain.Series{corrected}, digestToday, domain.WindowToday); !d.Empty() {
		t.Fatalf("expected empty today digest, got %+v", d)
	}
	// Non corrigée, la date de la semaine précédente n'apparaît dans aucune fenêtre hebdomadaire.
	for _, w := range []domain.Window{domain.WindowThisWeek, domain.WindowNextWeek} {
		if d, _ := Classify([]domain.Series{stale}, digestToday, w); !d.Empty() {
			t.Fatalf("%s: expected empty digest for stale record, got %+v", w, d)
		}
	}
	d, _ := Classify([]domain.Series{corrected}, digestToday, domain.WindowThisWeek)
	if !equalNames(d.Upcoming, "X") || len(d.Released) != 0 {
		t.Fatalf("unexpected this-week digest: %+v", d)
	}
}

func TestClassify_NextWeekProjectsCadence(t *testing.T) {
	d, err := Classify(digestRecords(), digestToday, domain.WindowNextWeek)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !equalNames(d.Upcoming, "C", "A", "B", "F") {
		t.Fatalf("unexpected upcoming: %v", names(d.Upcoming))
	}
	want := "#Сериалы\n\nНа следующей неделе выходят:\n\n" +
		"  C выходит в понедельник\n  A выходит в четверг\n  B выходит в пятницу\n  F выходит в пятницу"
	if got := d.Text(); got != want {
		t.Fatalf("unexpected text:\n%q", got)
	}
}

func TestClassify_EmptyFallbacks(t *testing.T) {
	records := []domain.Series{
		{Name: "W", Status: domain.StatusWantToWatch, ReleaseDate: day(2022, 7, 26)},
		{Name: "Done", Status: domain.StatusWatched, NextEpisodeDate: day(2022, 7, 26)},
	}
	cases := map[domain.Window]string{
		domain.WindowToday:    "Сегодня ничего не выходит =(",
		domain.WindowTomorrow: "Завтра ничего не выходит =(",
		domain.WindowThisWeek: "На этой неделе ничего не выходит =(",
		domain.WindowNextWeek: "На следующей неделе ничего не выходит =(",
	}
	for w, want := range cases {
		d, err := Classify(records, digestToday, w)
		if err != nil {
			t.Fatalf("%s: %v", w, err)
		}
		if got := d.Text(); got != want {
			t.Fatalf("%s: got %q, want %q", w, got, want)
		}
	}
}

func TestClassify_RejectsUnknownWindow(t *testing.T) {
	if _, err := Classify(nil, digestToday, domain.Window("yesterday")); !errors.Is(err, domain.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestRenderWanted(t *testing.T) {
	records := []domain.Series{
		{Name: "A", Status: domain.StatusWatching, NextEpisodeDate: day(2022, 7, 21)},
		{Name: "Past", Status: domain.StatusWantToWatch, ReleaseDate: day(2022, 7, 21)},
		{Name: "Future", Status: domain.StatusWantToWatch, ReleaseDate: day(2022, 8, 1)},
		{Name: "Unknown", Status: domain.StatusWantToWatch},
	}
	want := "#Сериалы\n\nВот ожидаемые сериалы:\n\n" +
		"  Past уже выходит\n" +
		"  Future выходит 2022-08-01\n" +
		"  Unknown дата выхода не известна или он уже вышел"
	if got := RenderWanted(records, digestToday); got != want {
		t.Fatalf("unexpected text:\n%q\nwant\n%q", got, want)
	}
	if got := RenderWanted(records[:1], digestToday); got != "Список ожидаемых пуст =(" {
		t.Fatalf("unexpected empty text: %q", got)
	}
}
