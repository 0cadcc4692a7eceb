package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/rs/zerolog"
)

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]any
}

type fakeNotion struct {
	mu       sync.Mutex
	requests []recordedRequest
	handle   func(w http.ResponseWriter, r recordedRequest)
}

func (f *fakeNotion) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
	if len(b) > 0 {
		_ = json.Unmarshal(b, &rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	f.handle(w, rec)
}

func newTestCatalog(t *testing.T, f *fakeNotion) *Catalog {
	t.Helper()
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)
	return NewCatalog(zerolog.Nop(), Options{Token: "secret", DatabaseID: "db1", BaseURL: ts.URL + "/"})
}

const pageJSON = `{
  "id": %q,
  "properties": {
    "Название": {"type": "title", "title": [{"plain_text": %q}]},
    "Статус": {"type": "select", "select": {"name": %q}},
    "Сезон": {"type": "number", "number": 2},
    "Закончен сезон?": {"type": "select", "select": {"name": "Нет"}},
    "Дата выхода": {"type": "date", "date": {"start": "2022-07-01"}},
    "Следующая серия выйдет": {"type": "date", "date": {"start": %q}},
    "Тип": {"type": "select", "select": {"name": "Аниме"}}
  }
}`

func pageFixture(id, name, status, next string) string {
	return fmt.Sprintf(pageJSON, id, name, status, next)
}

func seriesFixture() domain.Series {
	return domain.Series{
		Name:            "Alpha",
		Status:          domain.StatusWatching,
		Season:          1,
		Kind:            domain.KindSeries,
		ReleaseDate:     time.Date(2022, 7, 1, 0, 0, 0, 0, time.UTC),
		NextEpisodeDate: time.Date(2022, 7, 8, 0, 0, 0, 0, time.UTC),
	}
}

func TestCatalog_List_RequiresConfiguration(t *testing.T) {
	c := NewCatalog(zerolog.Nop(), Options{})
	if _, err := c.List(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCatalog_List_PaginatesAndSendsHeaders(t *testing.T) {
	f := &fakeNotion{}
	f.handle = func(w http.ResponseWriter, r recordedRequest) {
		if r.Body["start_cursor"] == nil {
			_, _ = io.WriteString(w, `{"results":[`+pageFixture("p1", "Alpha", "Смотрю", "2022-07-08")+`],"has_more":true,"next_cursor":"c2"}`)
			return
		}
		_, _ = io.WriteString(w, `{"results":[`+pageFixture("p2", "Beta", "Хочу посмотреть", "2022-07-09")+`],"has_more":false,"next_cursor":null}`)
	}
	c := newTestCatalog(t, f)

	got, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Alpha" || got[1].Name != "Beta" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if got[0].ID != "p1" || got[0].Season != 2 || got[0].Kind != "anime" || got[0].IsFinished {
		t.Fatalf("unexpected first record: %+v", got[0])
	}
	if want := time.Date(2022, 7, 8, 0, 0, 0, 0, time.UTC); !got[0].NextEpisodeDate.Equal(want) {
		t.Fatalf("next episode date = %v", got[0].NextEpisodeDate)
	}

	if len(f.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(f.requests))
	}
	first := f.requests[0]
	if first.Method != http.MethodPost || first.Path != "/databases/db1/query" {
		t.Fatalf("unexpected request: %s %s", first.Method, first.Path)
	}
	if first.Header.Get("Authorization") != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", first.Header.Get("Authorization"))
	}
	if first.Header.Get("Notion-Version") != DefaultVersion {
		t.Fatalf("unexpected version header %q", first.Header.Get("Notion-Version"))
	}
	if f.requests[1].Body["start_cursor"] != "c2" {
		t.Fatalf("expected cursor c2, got %v", f.requests[1].Body["start_cursor"])
	}
}

func TestCatalog_List_SkipsUnusableEntries(t *testing.T) {
	f := &fakeNotion{}
	f.handle = func(w http.ResponseWriter, r recordedRequest) {
		noTitle := `{"id":"p0","properties":{"Статус":{"type":"select","select":{"name":"Смотрю"}}}}`
		badStatus := pageFixture("p3", "Gamma", "Непонятно", "2022-07-08")
		badDate := pageFixture("p4", "Delta", "Смотрю", "not-a-date")
		archived := `{"id":"p5","archived":true,"properties":{}}`
		_, _ = io.WriteString(w, `{"results":[`+strings.Join([]string{
			noTitle, badStatus, badDate, archived, pageFixture("p1", "Alpha", "Смотрю", ""),
		}, ",")+`],"has_more":false}`)
	}
	c := newTestCatalog(t, f)

	got, err := c.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Alpha" {
		t.Fatalf("expected only Alpha, got %+v", got)
	}
	if got[0].HasNextEpisodeDate() {
		t.Fatalf("expected unset next date, got %v", got[0].NextEpisodeDate)
	}
}

func TestCatalog_PatchNextEpisodeDate_SendsDateProperty(t *testing.T) {
	f := &fakeNotion{}
	f.handle = func(w http.ResponseWriter, r recordedRequest) {
		_, _ = io.WriteString(w, `{"id":"p1"}`)
	}
	c := newTestCatalog(t, f)

	if err := c.PatchNextEpisodeDate(context.Background(), "p1", time.Date(2022, 7, 22, 15, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("patch: %v", err)
	}
	r := f.requests[0]
	if r.Method != http.MethodPatch || r.Path != "/pages/p1" {
		t.Fatalf("unexpected request: %s %s", r.Method, r.Path)
	}
	props, _ := r.Body["properties"].(map[string]any)
	prop, _ := props["Следующая серия выйдет"].(map[string]any)
	date, _ := prop["date"].(map[string]any)
	if date["start"] != "2022-07-22" {
		t.Fatalf("unexpected body: %+v", r.Body)
	}
}

func TestCatalog_InsertAndDelete(t *testing.T) {
	f := &fakeNotion{}
	f.handle = func(w http.ResponseWriter, r recordedRequest) {
		if r.Method == http.MethodPost {
			_, _ = io.WriteString(w, `{"id":"new-page"}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}
	c := newTestCatalog(t, f)

	id, err := c.Insert(context.Background(), seriesFixture())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != "new-page" {
		t.Fatalf("unexpected id %q", id)
	}
	ins := f.requests[0]
	if ins.Path != "/pages" {
		t.Fatalf("unexpected path %q", ins.Path)
	}
	parent, _ := ins.Body["parent"].(map[string]any)
	if parent["database_id"] != "db1" {
		t.Fatalf("unexpected parent: %+v", ins.Body["parent"])
	}
	props, _ := ins.Body["properties"].(map[string]any)
	status, _ := props["Статус"].(map[string]any)
	sel, _ := status["select"].(map[string]any)
	if sel["name"] != "Смотрю" {
		t.Fatalf("unexpected status property: %+v", props["Статус"])
	}

	if err := c.Delete(context.Background(), "p9"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	del := f.requests[1]
	if del.Method != http.MethodDelete || del.Path != "/blocks/p9" {
		t.Fatalf("unexpected request: %s %s", del.Method, del.Path)
	}
}

func TestCatalog_StatusError(t *testing.T) {
	f := &fakeNotion{}
	f.handle = func(w http.ResponseWriter, r recordedRequest) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"API token is invalid."}`)
	}
	c := newTestCatalog(t, f)

	_, err := c.List(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusUnauthorized || !strings.Contains(se.Error(), "invalid") {
		t.Fatalf("unexpected error: %v", se)
	}
}

func TestParseDate(t *testing.T) {
	cases := map[string]string{
		"2022-07-08":                "2022-07-08",
		"2022-07-08T23:30:00+00:00": "2022-07-08",
		"2022-07-08T10:00:00.000Z":  "2022-07-08",
	}
	for in, want := range cases {
		got, err := parseDate(in)
		if err != nil {
			t.Fatalf("parseDate(%q): %v", in, err)
		}
		if got.Format(time.DateOnly) != want {
			t.Fatalf("parseDate(%q) = %s, want %s", in, got.Format(time.DateOnly), want)
		}
	}
	if _, err := parseDate("08/07/2022"); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}
