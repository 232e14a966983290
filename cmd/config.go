package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dispatch/internal/pkg/errs"
)

// Sensor kinds.
const (
	SensorWebSocket = "websocket"
	SensorReplay    = "replay"
)

type Config struct {
	HTTPAddr string
	LogLevel slog.Level

	CourierAPIBaseURL        string
	CourierSessionCookieName string
	CourierSessionCookie     string
	APITimeout               time.Duration
	APIRateLimit             float64
	APIRateBurst             int

	SearchRadiusMeters      int
	PollInterval            time.Duration
	LocationRefreshInterval time.Duration
	PrefetchOrders          bool

	NotifyRadiusKm float64
	NotifyCooldown time.Duration
	NotifyPush     bool
	NotifySound    bool
	TelegramToken  string
	TelegramChatID int64
	TonePlayer     string

	SensorKind       string
	SensorURL        string
	SensorToken      string
	SensorReplayFile string
	SensorTimeout    time.Duration
}

func (c Config) Validate() error {
	var problems []error
	if c.CourierAPIBaseURL == "" {
		problems = append(problems, errs.NewValueIsRequiredError("COURIER_API_BASE_URL"))
	}
	if c.CourierSessionCookie == "" {
		problems = append(problems, errs.NewValueIsRequiredError("COURIER_SESSION_COOKIE"))
	}
	switch c.SensorKind {
	case SensorWebSocket:
		if c.SensorURL == "" {
			problems = append(problems, errs.NewValueIsRequiredError("SENSOR_URL"))
		}
	case SensorReplay:
		if c.SensorReplayFile == "" {
			problems = append(problems, errs.NewValueIsRequiredError("SENSOR_REPLAY_FILE"))
		}
	default:
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause(
			"SENSOR_KIND", fmt.Errorf("%q is not %s or %s", c.SensorKind, SensorWebSocket, SensorReplay)))
	}
	if c.TelegramToken != "" && c.TelegramChatID == 0 {
		problems = append(problems, errs.NewValueIsRequiredError("TELEGRAM_CHAT_ID"))
	}
	if c.NotifyRadiusKm <= 0 {
		problems = append(problems, errs.NewValueIsOutOfRangeError("NOTIFY_RADIUS_KM", c.NotifyRadiusKm, 0, "inf"))
	}
	return errors.Join(problems...)
}
