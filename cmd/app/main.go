package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"dispatch/cmd"
	"dispatch/internal/adapters/out/courierapi"
	"dispatch/internal/core/application/tracking"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/jobs"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configs := getConfigs()
	if err := configs.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: configs.LogLevel}))

	app, err := cmd.NewCompositionRoot(configs, logger)
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(); err != nil {
		log.Fatalf("failed to start jobs: %v", err)
	}
	startWebServer(ctx, app, configs.HTTPAddr, logger)
}

func getConfigs() cmd.Config {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	return cmd.Config{
		HTTPAddr: getEnv("HTTP_ADDR", "127.0.0.1:8088"),
		LogLevel: getLogLevel("LOG_LEVEL", slog.LevelInfo),

		CourierAPIBaseURL:        os.Getenv("COURIER_API_BASE_URL"),
		CourierSessionCookieName: getEnv("COURIER_SESSION_COOKIE_NAME", courierapi.DefaultSessionCookieName),
		CourierSessionCookie:     os.Getenv("COURIER_SESSION_COOKIE"),
		APITimeout:               getDuration("API_TIMEOUT", courierapi.DefaultTimeout),
		APIRateLimit:             getFloat("API_RATE_LIMIT", courierapi.DefaultRateLimit),
		APIRateBurst:             getInt("API_RATE_BURST", courierapi.DefaultRateBurst),

		SearchRadiusMeters:      getInt("SEARCH_RADIUS_M", commands.DefaultSearchRadiusMeters),
		PollInterval:            getDuration("POLL_INTERVAL", jobs.DefaultPollInterval),
		LocationRefreshInterval: getDuration("LOCATION_REFRESH_INTERVAL", jobs.DefaultLocationRefreshInterval),
		PrefetchOrders:          getBool("PREFETCH_ORDERS", true),

		NotifyRadiusKm: getFloat("NOTIFY_RADIUS_KM", services.DefaultProximityRadiusKm),
		NotifyCooldown: getDuration("NOTIFY_COOLDOWN", services.DefaultNotificationCooldown),
		NotifyPush:     getBool("NOTIFY_PUSH", true),
		NotifySound:    getBool("NOTIFY_SOUND", true),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: int64(getInt("TELEGRAM_CHAT_ID", 0)),
		TonePlayer:     getEnv("TONE_PLAYER", "aplay"),

		SensorKind:       getEnv("SENSOR_KIND", cmd.SensorWebSocket),
		SensorURL:        os.Getenv("SENSOR_URL"),
		SensorToken:      os.Getenv("SENSOR_TOKEN"),
		SensorReplayFile: os.Getenv("SENSOR_REPLAY_FILE"),
		SensorTimeout:    getDuration("SENSOR_TIMEOUT", tracking.DefaultFirstFixTimeout),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return d
}

func getInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return f
}

func getBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return b
}

func getLogLevel(key string, fallback slog.Level) slog.Level {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		log.Fatalf("%s: %v", key, err)
	}
	return level
}

func startWebServer(ctx context.Context, app *cmd.CompositionRoot, addr string, logger *slog.Logger) {
	e := app.Router()

	go func() {
		logger.Info("control surface listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	app.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown: %v", err)
	}
}
