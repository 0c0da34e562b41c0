package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/safety-companion/internal/alert"
	httpapi "github.com/i474232898/safety-companion/internal/api/http"
	"github.com/i474232898/safety-companion/internal/config"
	"github.com/i474232898/safety-companion/internal/emergency"
	"github.com/i474232898/safety-companion/internal/geocode"
	"github.com/i474232898/safety-companion/internal/logging"
	"github.com/i474232898/safety-companion/internal/notify"
	"github.com/i474232898/safety-companion/internal/scheduler"
	"github.com/i474232898/safety-companion/internal/store"
	"github.com/i474232898/safety-companion/internal/upstream"
	"github.com/i474232898/safety-companion/internal/weather"
	"github.com/i474232898/safety-companion/internal/weather/providers"
)

const appName = "safety-companion"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("failed to load config: %v", err)
	}

	log := logging.New(cfg, appName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provs, err := providers.Build(cfg.WeatherProviders, providers.Settings{
		HTTPClient:        httpClient,
		RPS:               cfg.UpstreamRPS,
		OpenWeatherAPIKey: cfg.OpenWeatherAPIKey,
		WeatherAPIKey:     cfg.WeatherAPIKey,
	})
	if err != nil {
		logging.Fatalf("failed to build weather providers: %v", err)
	}
	chain := weather.NewChain(log, provs...)

	resolver := geocode.NewGoogleResolver(upstream.New(upstream.Config{
		Name:    "google-geocoding",
		Client:  httpClient,
		Backoff: upstream.DefaultBackoff,
		RPS:     cfg.UpstreamRPS,
	}), cfg.GoogleGeocodingAPIKey, "")

	directory, err := loadDirectory(cfg)
	if err != nil {
		logging.Fatalf("failed to load emergency numbers: %v", err)
	}

	docs, closeDocs, err := openDocumentStore(ctx, cfg)
	if err != nil {
		logging.Fatalf("failed to open document store: %v", err)
	}
	defer closeDocs()

	publisher, closePublisher := openPublisher(ctx, cfg, log)
	defer closePublisher()

	policy := alert.NewPolicy(chain, resolver, directory, alert.NewSlotStore(), alert.Options{
		Baseline:  alert.BaselinePolicy(cfg.BaselinePolicy),
		Proximity: alert.ProximityGate{RadiusKm: cfg.ProximityRadiusKm},
		Publisher: publisher,
		Logger:    log,
	})

	// Scheduler that periodically refreshes tracked slots.
	sched := scheduler.New(policy, cfg.RefreshInterval, log)
	if err := sched.Start(); err != nil {
		logging.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Policy:       policy,
		Weather:      chain,
		Resolver:     resolver,
		Directory:    directory,
		Documents:    docs,
		HistoryLimit: cfg.HistoryLimit,
		Providers:    chain.Providers(),
		Logger:       log,
	})

	go func() {
		log.Info("listening", "port", cfg.Port, "providers", chain.Providers(), "store", cfg.StoreDriver)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

func loadDirectory(cfg *config.AppConfig) (*emergency.Directory, error) {
	var (
		dir *emergency.Directory
		err error
	)
	if cfg.EmergencyNumbersFile != "" {
		dir, err = emergency.LoadFile(cfg.EmergencyNumbersFile)
	} else {
		dir = emergency.MustNew()
	}
	if err != nil {
		return nil, err
	}

	if cfg.DefaultCountry != dir.DefaultCountry() {
		return dir.WithDefault(cfg.DefaultCountry)
	}
	return dir, nil
}

func openDocumentStore(ctx context.Context, cfg *config.AppConfig) (store.DocumentStore, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		s, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case config.StoreDynamoDB:
		s, err := store.NewDynamoStoreFromEnv(ctx, cfg.DynamoDBTable)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}

// openPublisher connects to MQTT when a broker is configured. A broker that
// cannot be reached at startup is logged and alerts are dropped; paho keeps
// retrying in the background.
func openPublisher(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (notify.Publisher, func()) {
	if !cfg.MQTT.Enabled() {
		return notify.Nop{}, func() {}
	}

	p := notify.NewMQTTPublisher(notify.MQTTConfig{
		Broker:   cfg.MQTT.Broker,
		Port:     cfg.MQTT.Port,
		ClientID: cfg.MQTT.ClientID,
		Topic:    cfg.MQTT.Topic,
	}, log)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.Connect(connectCtx); err != nil {
		log.Warn("mqtt unavailable, alerts will not be published", "error", err)
	}
	return p, p.Close
}
