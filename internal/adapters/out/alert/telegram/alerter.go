// Package telegram delivers out-of-app proximity alerts as Telegram bot messages.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"dispatch/internal/core/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const DefaultTimeout = 10 * time.Second

var _ ports.SystemAlerter = (*Alerter)(nil)

// Config selects the bot and the chat that receives alerts.
type Config struct {
	Token  string
	ChatID int64
	// Endpoint overrides tgbotapi.APIEndpoint, e.g. for a local Bot API server.
	Endpoint string
	Timeout  time.Duration
}

// Alerter sends one message per alert. It has permission to alert only when a
// chat is configured.
type Alerter struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// New authenticates the bot against the Bot API.
func New(cfg Config, logger *slog.Logger) (*Alerter, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	logger = logger.With("component", "telegram")
	logger.Info("telegram alerts enabled", "bot", api.Self.UserName, "chatID", cfg.ChatID)

	return &Alerter{api: api, chatID: cfg.ChatID, logger: logger}, nil
}

func (a *Alerter) PermissionGranted() bool {
	return a != nil && a.chatID != 0
}

// Send posts title and body as one plain-text message. The Bot API client has
// no context support, so ctx only bounds how long the caller waits.
func (a *Alerter) Send(ctx context.Context, title, body string) error {
	msg := tgbotapi.NewMessage(a.chatID, title+"\n"+body)

	done := make(chan error, 1)
	go func() {
		_, err := a.api.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
