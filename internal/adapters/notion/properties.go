package notion

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
)

var (
	errMissingTitle  = errors.New("missing title")
	errMissingStatus = errors.New("missing or unknown status")
)

type page struct {
	ID         string              `json:"id"`
	Archived   bool                `json:"archived"`
	Properties map[string]property `json:"properties"`
}

type richText struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
}

type selectOption struct {
	Name string `json:"name"`
}

type dateRange struct {
	Start string `json:"start"`
}

type formula struct {
	Type   string   `json:"type"`
	Number *float64 `json:"number,omitempty"`
}

type property struct {
	Type     string        `json:"type"`
	Title    []richText    `json:"title,omitempty"`
	Select   *selectOption `json:"select,omitempty"`
	Number   *float64      `json:"number,omitempty"`
	Date     *dateRange    `json:"date,omitempty"`
	Checkbox *bool         `json:"checkbox,omitempty"`
	Formula  *formula      `json:"formula,omitempty"`
}

// field porte une valeur extraite ou l'absence de valeur, sans erreur.
type field[T any] struct {
	value T
	ok    bool
}

func present[T any](v T) field[T] { return field[T]{value: v, ok: true} }

func missing[T any]() field[T] { return field[T]{} }

func (f field[T]) Or(def T) T {
	if f.ok {
		return f.value
	}
	return def
}

func (p page) title(name string) field[string] {
	prop, ok := p.Properties[name]
	if !ok || len(prop.Title) == 0 {
		return missing[string]()
	}
	var b strings.Builder
	for _, t := range prop.Title {
		switch {
		case t.PlainText != "":
			b.WriteString(t.PlainText)
		case t.Text != nil:
			b.WriteString(t.Text.Content)
		}
	}
	v := strings.TrimSpace(b.String())
	if v == "" {
		return missing[string]()
	}
	return present(v)
}

func (p page) selectName(name string) field[string] {
	prop, ok := p.Properties[name]
	if !ok || prop.Select == nil || strings.TrimSpace(prop.Select.Name) == "" {
		return missing[string]()
	}
	return present(strings.TrimSpace(prop.Select.Name))
}

func (p page) number(name string) field[int] {
	prop, ok := p.Properties[name]
	if !ok || prop.Number == nil {
		return missing[int]()
	}
	return present(int(*prop.Number))
}

// amount lit un nombre, saisi ou calculé par une formule.
func (p page) amount(name string) field[float64] {
	prop, ok := p.Properties[name]
	switch {
	case !ok:
		return missing[float64]()
	case prop.Number != nil:
		return present(*prop.Number)
	case prop.Formula != nil && prop.Formula.Number != nil:
		return present(*prop.Formula.Number)
	}
	return missing[float64]()
}

func (p page) checkbox(name string) field[bool] {
	prop, ok := p.Properties[name]
	if !ok || prop.Checkbox == nil {
		return missing[bool]()
	}
	return present(*prop.Checkbox)
}

// date: absence -> missing; valeur illisible -> erreur (le titre est alors ignoré).
func (p page) date(name string) (field[time.Time], error) {
	prop, ok := p.Properties[name]
	if !ok || prop.Date == nil || strings.TrimSpace(prop.Date.Start) == "" {
		return missing[time.Time](), nil
	}
	d, err := parseDate(prop.Date.Start)
	if err != nil {
		return missing[time.Time](), fmt.Errorf("property %q: %w", name, err)
	}
	return present(d), nil
}

// parseDate accepte "2006-01-02" et les dates-heures ISO 8601 (seule la date civile est gardée).
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(time.DateOnly) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return domain.DateOf(t), nil
		}
		s = s[:len(time.DateOnly)]
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func (c *Catalog) extract(p page) (domain.Series, error) {
	props := c.opts.Properties

	name := p.title(props.Title)
	if !name.ok {
		return domain.Series{}, errMissingTitle
	}
	statusLabel := p.selectName(props.Status)
	status := c.statusOf(statusLabel.Or(""))
	if !statusLabel.ok || status == "" {
		return domain.Series{}, fmt.Errorf("%w: %q", errMissingStatus, statusLabel.Or(""))
	}

	release, err := p.date(props.ReleaseDate)
	if err != nil {
		return domain.Series{}, err
	}
	next, err := p.date(props.NextEpisodeDate)
	if err != nil {
		return domain.Series{}, err
	}

	var finished bool
	if sel := p.selectName(props.Finished); sel.ok {
		finished = sel.value == c.opts.Values.FinishedYes
	} else {
		finished = p.checkbox(props.Finished).Or(false)
	}

	return domain.Series{
		ID:              p.ID,
		Name:            name.value,
		Status:          status,
		Season:          p.number(props.Season).Or(0),
		Kind:            c.kindOf(p.selectName(props.Kind).Or("")),
		IsFinished:      finished,
		ReleaseDate:     release.Or(time.Time{}),
		NextEpisodeDate: next.Or(time.Time{}),
	}, nil
}

func (c *Catalog) statusOf(label string) domain.Status {
	v := c.opts.Values
	switch label {
	case v.Watching:
		return domain.StatusWatching
	case v.WantToWatch:
		return domain.StatusWantToWatch
	case v.Watched:
		return domain.StatusWatched
	}
	return ""
}

func (c *Catalog) statusLabel(s domain.Status) string {
	v := c.opts.Values
	switch s {
	case domain.StatusWatching:
		return v.Watching
	case domain.StatusWantToWatch:
		return v.WantToWatch
	case domain.StatusWatched:
		return v.Watched
	}
	return ""
}

func (c *Catalog) kindOf(label string) domain.Kind {
	v := c.opts.Values
	switch label {
	case v.Anime:
		return domain.KindAnime
	case v.Series:
		return domain.KindSeries
	case v.Cartoon:
		return domain.KindCartoon
	}
	return domain.KindUnknown
}

func (c *Catalog) kindLabel(k domain.Kind) string {
	v := c.opts.Values
	switch k {
	case domain.KindAnime:
		return v.Anime
	case domain.KindSeries:
		return v.Series
	case domain.KindCartoon:
		return v.Cartoon
	}
	return ""
}

func dateValue(d time.Time) map[string]any {
	return map[string]any{
		"date": map[string]any{
			"start":     domain.DateOf(d).Format(time.DateOnly),
			"end":       nil,
			"time_zone": nil,
		},
	}
}

func selectValue(name string) map[string]any {
	return map[string]any{"select": map[string]any{"name": name}}
}

// encode construit les propriétés d'une page à créer; les champs inconnus sont omis.
func (c *Catalog) encode(s domain.Series) map[string]any {
	props := c.opts.Properties
	out := map[string]any{
		props.Title: map[string]any{
			"title": []any{map[string]any{"text": map[string]any{"content": s.Name}}},
		},
	}
	if label := c.statusLabel(s.Status); label != "" {
		out[props.Status] = selectValue(label)
	}
	if s.Season > 0 {
		out[props.Season] = map[string]any{"number": s.Season}
	}
	finished := c.opts.Values.FinishedNo
	if s.IsFinished {
		finished = c.opts.Values.FinishedYes
	}
	out[props.Finished] = selectValue(finished)
	if s.HasReleaseDate() {
		out[props.ReleaseDate] = dateValue(s.ReleaseDate)
	}
	if s.HasNextEpisodeDate() {
		out[props.NextEpisodeDate] = dateValue(s.NextEpisodeDate)
	}
	if label := c.kindLabel(s.Kind); label != "" {
		out[props.Kind] = selectValue(label)
	}
	return out
}
