package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type fakeAPI struct {
	mu      sync.Mutex
	sent    []tgbotapi.MessageConfig
	updates chan tgbotapi.Update
	stopped bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.MessageConfig(nil), f.sent...)
}

type ownerOnly struct{ owner int64 }

func (h ownerOnly) Handle(ctx context.Context, userID int64, command string) (string, bool) {
	if userID != h.owner {
		return "", false
	}
	return "reply:" + command, true
}

func commandUpdate(userID int64, text string) tgbotapi.Update {
	cmd := strings.Fields(text)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: userID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func TestBot_RepliesToOwnerCommandsOnly(t *testing.T) {
	f := &fakeAPI{updates: make(chan tgbotapi.Update, 4)}
	b := newBot(zerolog.Nop(), f, ownerOnly{owner: 42}, 0)

	f.updates <- commandUpdate(42, "/today")
	f.updates <- commandUpdate(7, "/today")
	f.updates <- tgbotapi.Update{Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 42}, Chat: &tgbotapi.Chat{ID: 42}, Text: "hello"}}
	f.updates <- commandUpdate(42, "/this_week@series_bot")
	close(f.updates)

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := f.messages()
	if len(got) != 2 {
		t.Fatalf("expected 2 replies, got %d: %+v", len(got), got)
	}
	if got[0].ChatID != 42 || got[0].Text != "reply:today" {
		t.Fatalf("unexpected first reply: %+v", got[0])
	}
	if got[1].Text != "reply:this_week" {
		t.Fatalf("unexpected second reply: %+v", got[1])
	}
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	f := &fakeAPI{updates: make(chan tgbotapi.Update)}
	b := newBot(zerolog.Nop(), f, ownerOnly{owner: 1}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		t.Fatalf("expected StopReceivingUpdates")
	}
}

func TestBot_SendSplitsLongMessages(t *testing.T) {
	f := &fakeAPI{}
	b := newBot(zerolog.Nop(), f, nil, 0)

	line := strings.Repeat("я", 100) + "\n"
	text := strings.Repeat(line, 50)
	if err := b.Send(context.Background(), 42, text); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got := f.messages()
	if len(got) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(got))
	}
	total := 0
	for _, m := range got {
		if n := len([]rune(m.Text)); n > maxMessageRunes {
			t.Fatalf("part too long: %d runes", n)
		}
		total += strings.Count(m.Text, "я")
	}
	if total != 5000 {
		t.Fatalf("expected all content to be sent, got %d runes", total)
	}
}

func TestSplitMessage_HardSplitsLongLine(t *testing.T) {
	parts := splitMessage(strings.Repeat("a", 25), 10)
	if len(parts) != 3 || parts[0] != strings.Repeat("a", 10) || parts[2] != "aaaaa" {
		t.Fatalf("unexpected parts: %q", parts)
	}
}
