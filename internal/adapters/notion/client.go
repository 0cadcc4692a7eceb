package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL  = "https://api.notion.com/v1"
	DefaultVersion  = "2022-06-28"
	DefaultPageSize = 100
)

var ErrNotConfigured = errors.New("notion catalog not configured")

// StatusError: réponse HTTP hors 2xx.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("notion %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// Properties nomme les colonnes de la base Notion.
type Properties struct {
	Title           string `mapstructure:"title"`
	Status          string `mapstructure:"status"`
	Season          string `mapstructure:"season"`
	Finished        string `mapstructure:"finished"`
	ReleaseDate     string `mapstructure:"release_date"`
	NextEpisodeDate string `mapstructure:"next_episode_date"`
	Kind            string `mapstructure:"kind"`
}

// Values donne les libellés des options "select".
type Values struct {
	Watching    string `mapstructure:"watching"`
	WantToWatch string `mapstructure:"want_to_watch"`
	Watched     string `mapstructure:"watched"`
	FinishedYes string `mapstructure:"finished_yes"`
	FinishedNo  string `mapstructure:"finished_no"`
	Anime       string `mapstructure:"anime"`
	Series      string `mapstructure:"series"`
	Cartoon     string `mapstructure:"cartoon"`
}

func DefaultProperties() Properties {
	return Properties{
		Title:           "Название",
		Status:          "Статус",
		Season:          "Сезон",
		Finished:        "Закончен сезон?",
		ReleaseDate:     "Дата выхода",
		NextEpisodeDate: "Следующая серия выйдет",
		Kind:            "Тип",
	}
}

func DefaultValues() Values {
	return Values{
		Watching:    "Смотрю",
		WantToWatch: "Хочу посмотреть",
		Watched:     "Просмотренно",
		FinishedYes: "Да",
		FinishedNo:  "Нет",
		Anime:       "Аниме",
		Series:      "Сериал",
		Cartoon:     "Мультсериал",
	}
}

type Options struct {
	Token      string
	DatabaseID string
	BaseURL    string
	Version    string
	PageSize   int
	Timeout    time.Duration
	Properties Properties
	Values     Values
	// Subscriptions décrit la seconde base (abonnements); DatabaseID vide la désactive.
	Subscriptions SubscriptionOptions
}

// Catalog implémente ports.Catalog sur l'API Notion.
type Catalog struct {
	logger zerolog.Logger
	opts   Options
	client *http.Client
}

func NewCatalog(logger zerolog.Logger, opts Options) *Catalog {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.PageSize <= 0 || opts.PageSize > DefaultPageSize {
		opts.PageSize = DefaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Properties == (Properties{}) {
		opts.Properties = DefaultProperties()
	}
	if opts.Values == (Values{}) {
		opts.Values = DefaultValues()
	}
	if opts.Subscriptions.Properties == (SubscriptionProperties{}) {
		opts.Subscriptions.Properties = DefaultSubscriptionProperties()
	}
	return &Catalog{
		logger: logger,
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

func (c *Catalog) WithHTTPClient(client *http.Client) *Catalog {
	if client != nil {
		c.client = client
	}
	return c
}

type queryRequest struct {
	PageSize    int    `json:"page_size,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type createdPage struct {
	ID string `json:"id"`
}

func (c *Catalog) List(ctx context.Context) ([]domain.Series, error) {
	if c.opts.Token == "" || c.opts.DatabaseID == "" {
		return nil, ErrNotConfigured
	}
	out := make([]domain.Series, 0)
	err := c.query(ctx, c.opts.DatabaseID, func(p page) {
		s, err := c.extract(p)
		if err != nil {
			c.logger.Warn().Err(err).Str("page_id", p.ID).Msg("catalog entry skipped")
			return
		}
		out = append(out, s)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// query parcourt toutes les pages non archivées d'une base, curseur après curseur.
func (c *Catalog) query(ctx context.Context, databaseID string, visit func(p page)) error {
	cursor := ""
	for {
		var resp queryResponse
		req := queryRequest{PageSize: c.opts.PageSize, StartCursor: cursor}
		if err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", req, &resp); err != nil {
			return err
		}
		for _, p := range resp.Results {
			if !p.Archived {
				visit(p)
			}
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return nil
		}
		cursor = resp.NextCursor
	}
}

func (c *Catalog) PatchNextEpisodeDate(ctx context.Context, id string, date time.Time) error {
	body := map[string]any{
		"properties": map[string]any{
			c.opts.Properties.NextEpisodeDate: dateValue(date),
		},
	}
	if err := c.do(ctx, http.MethodPatch, "/pages/"+id, body, nil); err != nil {
		return err
	}
	c.logger.Info().Str("page_id", id).Str("date", domain.DateOf(date).Format(time.DateOnly)).Msg("next episode date patched")
	return nil
}

func (c *Catalog) Insert(ctx context.Context, s domain.Series) (string, error) {
	body := map[string]any{
		"parent":     map[string]any{"database_id": c.opts.DatabaseID},
		"properties": c.encode(s),
	}
	var created createdPage
	if err := c.do(ctx, http.MethodPost, "/pages", body, &created); err != nil {
		return "", err
	}
	c.logger.Info().Str("page_id", created.ID).Str("name", s.Name).Msg("page inserted")
	return created.ID, nil
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/blocks/"+id, nil, nil); err != nil {
		return err
	}
	c.logger.Info().Str("page_id", id).Msg("page deleted")
	return nil
}

func (c *Catalog) do(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	req.Header.Set("Notion-Version", c.opts.Version)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}
