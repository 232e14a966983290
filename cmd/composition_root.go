package cmd

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	httpadapter "dispatch/internal/adapters/in/http"
	"dispatch/internal/adapters/out/alert/telegram"
	"dispatch/internal/adapters/out/alert/toast"
	"dispatch/internal/adapters/out/alert/tone"
	"dispatch/internal/adapters/out/courierapi"
	"dispatch/internal/adapters/out/sensor/replay"
	"dispatch/internal/adapters/out/sensor/wsfeed"
	"dispatch/internal/core/application/notification"
	"dispatch/internal/core/application/proximity"
	"dispatch/internal/core/application/session"
	"dispatch/internal/core/application/state"
	"dispatch/internal/core/application/tracking"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/core/ports"
	"dispatch/internal/jobs"
	"dispatch/internal/metrics"

	"github.com/labstack/echo/v4"
)

// CompositionRoot owns every long-lived component of the client.
type CompositionRoot struct {
	cfg    Config
	logger *slog.Logger

	store   *state.Store
	api     *courierapi.Client
	toasts  *toast.Broker
	jobs    *jobs.JobManager
	session *session.Session
	router  *echo.Echo
}

func NewCompositionRoot(cfg Config, logger *slog.Logger) (*CompositionRoot, error) {
	metrics.RegisterDefault()

	c := &CompositionRoot{
		cfg:    cfg,
		logger: logger,
		store:  state.NewStore(),
		toasts: toast.NewBroker(logger),
	}

	api, err := courierapi.NewClient(courierapi.Config{
		BaseURL:           cfg.CourierAPIBaseURL,
		SessionCookieName: cfg.CourierSessionCookieName,
		SessionCookie:     cfg.CourierSessionCookie,
		Timeout:           cfg.APITimeout,
		RateLimit:         cfg.APIRateLimit,
		RateBurst:         cfg.APIRateBurst,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("courier api: %w", err)
	}
	c.api = api

	sensor, err := c.createSensor()
	if err != nil {
		return nil, fmt.Errorf("location sensor: %w", err)
	}
	tracker := tracking.NewTracker(sensor, api, logger, tracking.WithFirstFixTimeout(cfg.SensorTimeout))

	claimHandler := c.CreateClaimOrderCommandHandler()
	advanceHandler := c.CreateAdvanceOrderCommandHandler()
	c.jobs = jobs.NewJobManager(c.store, jobs.Handlers{
		NearbyBusinesses: c.CreateRefreshNearbyBusinessesCommandHandler(),
		BusinessOrders:   commands.NewRefreshBusinessOrdersCommandHandler(c.store, api),
		MyOrders:         commands.NewRefreshMyOrdersCommandHandler(c.store, api),
		PushLocation:     commands.NewPushLocationCommandHandler(c.store, api),
	}, jobs.Intervals{
		Poll:            cfg.PollInterval,
		LocationRefresh: cfg.LocationRefreshInterval,
	}, logger)
	claimHandler.SetRefresher(c.jobs)
	advanceHandler.SetRefresher(c.jobs)

	dispatcher := c.createDispatcher()
	notifier := proximity.NewNotifier(
		services.NewProximityEvaluator(cfg.NotifyRadiusKm),
		services.NewCooldownGate(cfg.NotifyCooldown),
		dispatcher,
		nil,
		logger,
	)

	mapView := queries.NewGetMapViewQueryHandler(c.store)
	c.session = session.NewSession(
		c.store,
		tracker,
		c.jobs,
		commands.NewSelectBusinessCommandHandler(c.store, api),
		mapView,
		notifier,
		logger,
	)

	server := httpadapter.NewServer(
		c.session,
		claimHandler,
		advanceHandler,
		queries.NewGetStateQueryHandler(c.store, claimHandler),
		mapView,
		c.toasts,
		dispatcher,
	)
	c.router = httpadapter.NewRouter(server, logger)

	return c, nil
}

func (c *CompositionRoot) CreateClaimOrderCommandHandler() *commands.ClaimOrderCommandHandler {
	return commands.NewClaimOrderCommandHandler(c.store, c.api, c.toasts, nil, nil, c.logger)
}

func (c *CompositionRoot) CreateAdvanceOrderCommandHandler() *commands.AdvanceOrderCommandHandler {
	return commands.NewAdvanceOrderCommandHandler(c.store, c.api, nil, c.logger)
}

func (c *CompositionRoot) CreateRefreshNearbyBusinessesCommandHandler() commands.RefreshNearbyBusinessesCommandHandler {
	return commands.NewRefreshNearbyBusinessesCommandHandler(
		c.store, c.api, c.cfg.SearchRadiusMeters, c.cfg.PrefetchOrders, c.logger)
}

func (c *CompositionRoot) createSensor() (ports.LocationSensor, error) {
	switch c.cfg.SensorKind {
	case SensorReplay:
		track, err := replay.LoadTrack(c.cfg.SensorReplayFile)
		if err != nil {
			return nil, err
		}
		return replay.NewSensor(track, c.logger)
	default:
		header := http.Header{}
		if c.cfg.SensorToken != "" {
			header.Set("Authorization", "Bearer "+c.cfg.SensorToken)
		}
		return wsfeed.NewSensor(c.cfg.SensorURL, header, c.logger)
	}
}

func (c *CompositionRoot) createDispatcher() *notification.Dispatcher {
	var alerter ports.SystemAlerter
	if c.cfg.TelegramToken != "" {
		a, err := telegram.New(telegram.Config{Token: c.cfg.TelegramToken, ChatID: c.cfg.TelegramChatID}, c.logger)
		if err != nil {
			c.logger.Warn("system alerts disabled", "error", err)
		} else {
			alerter = a
		}
	}

	player := tone.NewPlayer(tone.NewSink(c.cfg.TonePlayer, os.Stdout, c.logger))

	return notification.NewDispatcher(
		alerter,
		player,
		c.toasts,
		notification.Preferences{Push: c.cfg.NotifyPush, Sound: c.cfg.NotifySound},
		nil,
		c.logger,
	)
}

// Router serves the local control surface.
func (c *CompositionRoot) Router() *echo.Echo {
	return c.router
}

// Start begins the scheduled refreshes. The courier still has to go online.
func (c *CompositionRoot) Start() error {
	return c.jobs.StartAll()
}

// Close ends the session and the toast stream.
func (c *CompositionRoot) Close() {
	c.session.Close()
	c.toasts.Close()
}
