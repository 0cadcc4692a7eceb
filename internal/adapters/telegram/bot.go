package telegram

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Limite Telegram pour le texte d'un message.
const maxMessageRunes = 4096

var ErrNoToken = errors.New("telegram token not configured")

type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// CommandHandler répond à une commande; ok=false signifie "ne rien envoyer".
type CommandHandler interface {
	Handle(ctx context.Context, userID int64, command string) (reply string, ok bool)
}

type Options struct {
	Token string
	// PollTimeout en secondes (long polling).
	PollTimeout int
	Debug       bool
}

// Bot relie le long polling Telegram aux commandes, et sert de ports.Messenger.
type Bot struct {
	logger  zerolog.Logger
	api     api
	handler CommandHandler
	timeout int
}

func NewBot(logger zerolog.Logger, opts Options, handler CommandHandler) (*Bot, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, ErrNoToken
	}
	botAPI, err := tgbotapi.NewBotAPI(opts.Token)
	if err != nil {
		return nil, err
	}
	botAPI.Debug = opts.Debug
	logger.Info().Str("username", botAPI.Self.UserName).Msg("telegram bot authorized")
	return newBot(logger, botAPI, handler, opts.PollTimeout), nil
}

func newBot(logger zerolog.Logger, a api, handler CommandHandler, timeout int) *Bot {
	if timeout <= 0 {
		timeout = 60
	}
	return &Bot{logger: logger, api: a, handler: handler, timeout: timeout}
}

// Run traite les mises à jour jusqu'à l'annulation du contexte.
func (b *Bot) Run(ctx context.Context) error {
	if b.handler == nil {
		return errors.New("telegram: no command handler")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout
	updates := b.api.GetUpdatesChan(u)
	b.logger.Info().Msg("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info().Msg("telegram polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	if !msg.IsCommand() {
		b.logger.Debug().Int64("user_id", msg.From.ID).Msg("non-command message ignored")
		return
	}
	reply, ok := b.handler.Handle(ctx, msg.From.ID, msg.Command())
	if !ok || reply == "" {
		return
	}
	if err := b.send(msg.Chat.ID, reply); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Str("command", msg.Command()).Msg("telegram reply failed")
	}
}

// Send implémente ports.Messenger; en conversation privée chat_id == user_id.
func (b *Bot) Send(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.send(userID, text)
}

func (b *Bot) send(chatID int64, text string) error {
	for _, part := range splitMessage(text, maxMessageRunes) {
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			return err
		}
	}
	return nil
}

// splitMessage découpe sur les fins de ligne pour rester sous la limite.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		ln := utf8.RuneCountInString(line)
		if n+ln > limit {
			flush()
		}
		for ln > limit {
			r := []rune(line)
			parts = append(parts, string(r[:limit]))
			line = string(r[limit:])
			ln -= limit
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return parts
}
