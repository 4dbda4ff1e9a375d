package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Transport delivers inbound messages and sends replies.
type Transport interface {
	Updates(ctx context.Context) (<-chan Message, error)
	Send(ctx context.Context, chatID int64, text string) error
}

type TelegramConfig struct {
	Token       string
	PollTimeout int
	Debug       bool
	// APIEndpoint overrides tgbotapi.APIEndpoint, mostly for tests.
	APIEndpoint string
	HTTPClient  *http.Client
}

// TelegramTransport long-polls the Bot API.
type TelegramTransport struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
	logger      *slog.Logger
}

var _ Transport = (*TelegramTransport)(nil)

func NewTelegramTransport(cfg TelegramConfig, logger *slog.Logger) (*TelegramTransport, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	client := cfg.HTTPClient
	if client == nil {
		// Must outlast a long poll.
		client = &http.Client{Timeout: time.Duration(pollTimeout+10) * time.Second}
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug

	logger.Info("telegram bot authorized", "username", api.Self.UserName)
	return &TelegramTransport{api: api, pollTimeout: pollTimeout, logger: logger}, nil
}

// Updates streams text messages until ctx is done.
func (t *TelegramTransport) Updates(ctx context.Context) (<-chan Message, error) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = t.pollTimeout
	updateCfg.AllowedUpdates = []string{"message"}
	updates := t.api.GetUpdatesChan(updateCfg)

	out := make(chan Message)
	go func() {
		defer close(out)
		defer t.api.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				msg, ok := messageFromUpdate(update)
				if !ok {
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Send returns when the Bot API answers or ctx is done, whichever is first.
// An abandoned request is still bounded by the HTTP client timeout.
func (t *TelegramTransport) Send(ctx context.Context, chatID int64, text string) error {
	done := make(chan error, 1)
	go func() {
		_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send telegram message: %w", ctx.Err())
	}
}

// messageFromUpdate keeps text messages only.
func messageFromUpdate(update tgbotapi.Update) (Message, bool) {
	if update.Message == nil || update.Message.Chat == nil {
		return Message{}, false
	}
	if strings.TrimSpace(update.Message.Text) == "" {
		return Message{}, false
	}
	msg := Message{ChatID: update.Message.Chat.ID, Text: update.Message.Text}
	if update.Message.From != nil {
		msg.UserID = update.Message.From.ID
	}
	return msg, true
}
