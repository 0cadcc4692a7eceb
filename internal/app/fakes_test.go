package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/series-notifier/internal/domain"
	"github.com/Guilhem-Bonnet/series-notifier/internal/ports"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// fakeCatalog: catalogue distant en mémoire, mutations enregistrées.
type fakeCatalog struct {
	mu        sync.Mutex
	records   []domain.Series
	listErr   error
	patchErr  map[string]error
	patches   []string
	inserted  []domain.Series
	deleted   []string
	lastIDNum int
}

func (c *fakeCatalog) List(ctx context.Context) ([]domain.Series, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	out := make([]domain.Series, len(c.records))
	copy(out, c.records)
	return out, nil
}

func (c *fakeCatalog) PatchNextEpisodeDate(ctx context.Context, id string, date time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.patchErr[id]; err != nil {
		return err
	}
	for i := range c.records {
		if c.records[i].ID == id {
			c.records[i].NextEpisodeDate = date
			c.patches = append(c.patches, id+"="+date.Format(time.DateOnly))
			return nil
		}
	}
	return ports.ErrNotFound
}

func (c *fakeCatalog) Insert(ctx context.Context, s domain.Series) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastIDNum++
	s.ID = fmt.Sprintf("new-%d", c.lastIDNum)
	c.records = append(c.records, s)
	c.inserted = append(c.inserted, s)
	return s.ID, nil
}

func (c *fakeCatalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.records {
		if c.records[i].ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			c.deleted = append(c.deleted, id)
			return nil
		}
	}
	return ports.ErrNotFound
}

// fakeMirror: miroir en mémoire, ordre d'insertion conservé.
type fakeMirror struct {
	mu      sync.Mutex
	docs    []domain.Series
	findErr error
	dropped int
	seq     int
}

// newFakeMirror attribue un identifiant local à chaque document initial.
func newFakeMirror(docs ...domain.Series) *fakeMirror {
	m := &fakeMirror{}
	for _, d := range docs {
		_ = m.Insert(context.Background(), d)
	}
	return m
}

func (m *fakeMirror) Find(ctx context.Context, f ports.Filter) ([]domain.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	out := make([]domain.Series, 0, len(m.docs))
	for _, d := range m.docs {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *fakeMirror) Insert(ctx context.Context, s domain.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	s.LocalID = fmt.Sprintf("local-%d", m.seq)
	m.docs = append(m.docs, s)
	return nil
}

func (m *fakeMirror) first(name string) int {
	for i, d := range m.docs {
		if d.Name == name {
			return i
		}
	}
	return -1
}

func (m *fakeMirror) ReplaceByName(ctx context.Context, name string, s domain.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.first(name)
	if i < 0 {
		return ports.ErrNotFound
	}
	s.LocalID = m.docs[i].LocalID
	m.docs[i] = s
	return nil
}

func (m *fakeMirror) UpdateNextEpisodeDate(ctx context.Context, localID string, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.docs {
		if m.docs[i].LocalID == localID {
			m.docs[i].NextEpisodeDate = date
			return nil
		}
	}
	return ports.ErrNotFound
}

func (m *fakeMirror) SetRemoteID(ctx context.Context, name string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.first(name)
	if i < 0 {
		return ports.ErrNotFound
	}
	m.docs[i].ID = id
	return nil
}

func (m *fakeMirror) Drop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = nil
	m.dropped++
	return nil
}

type fakeReports struct {
	mu    sync.Mutex
	saved []domain.ReconcileReport
}

func (r *fakeReports) Last(ctx context.Context) (domain.ReconcileReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return domain.ReconcileReport{}, ports.ErrNotFound
	}
	return r.saved[len(r.saved)-1], nil
}

func (r *fakeReports) Save(ctx context.Context, report domain.ReconcileReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, report)
	return nil
}

type sentMessage struct {
	userID int64
	text   string
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *fakeMessenger) Send(ctx context.Context, userID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{userID: userID, text: text})
	return nil
}

func (m *fakeMessenger) sentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.text)
	}
	return out
}

func (m *fakeMessenger) lastUser() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return 0
	}
	return m.sent[len(m.sent)-1].userID
}

// fakeBus: bus synchrone avec tampon, suffisant pour les tests.
type fakeBus struct {
	mu     sync.Mutex
	subs   []chan ports.Event
	events []ports.Event
}

func newFakeBus() *fakeBus { return &fakeBus{} }

func (b *fakeBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	evt := ports.Event{Topic: topic, Payload: payload}
	b.events = append(b.events, evt)
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (b *fakeBus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event, 16)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch, func() {}
}

func (b *fakeBus) topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.Topic)
	}
	return out
}

func (b *fakeBus) waitSubscribers(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		got := len(b.subs)
		b.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d subscribers", n)
}

var errBoom = errors.New("boom")
