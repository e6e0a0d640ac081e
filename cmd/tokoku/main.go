package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"tokoku/internal/auth"
	"tokoku/internal/config"
	"tokoku/internal/events"
	"tokoku/internal/http/handlers"
	applog "tokoku/internal/log"
	"tokoku/internal/query"
	"tokoku/internal/repos"
	"tokoku/internal/storage"
)

func main() {
	fx.New(
		fx.Provide(
			loadConfig,
			openDB,
			newBus,
			newQueryClient,
			newStorage,
			newServices,
			newDeps,
			newApp,
		),
		fx.Invoke(consumeEvents, serve),
	).Run()
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := applog.SetLevel(cfg.LogLevel); err != nil {
		return config.Config{}, errors.Wrapf(err, "config: LOG_LEVEL %q", cfg.LogLevel)
	}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			applog.L().Warn().Err(err).Str("path", cfg.LogFile).Msg("[log] could not open log file")
		} else {
			applog.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}
	return cfg, nil
}

func openDB(lc fx.Lifecycle, cfg config.Config) (*sqlx.DB, error) {
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return db.Close() }})
	return db, nil
}

func newBus(lc fx.Lifecycle, cfg config.Config) *events.Bus {
	var pub events.Publisher = events.NopPublisher{}
	if cfg.KafkaEnabled() {
		pub = events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	bus := events.NewBus(pub, uuid.NewString())
	lc.Append(fx.Hook{OnStop: func(context.Context) error { return bus.Close() }})
	return bus
}

func newQueryClient(cfg config.Config, bus *events.Bus) *query.Client {
	return query.NewClient(
		query.WithMetrics(query.NewMetrics(prometheus.DefaultRegisterer)),
		query.WithBroadcaster(bus),
		query.WithCapacity(cfg.CacheSize),
		query.WithTTL(cfg.CacheTTL),
	)
}

func newStorage(cfg config.Config) (*storage.Service, error) {
	var backend storage.Backend
	switch strings.ToLower(cfg.StorageBackend) {
	case "s3":
		b, err := storage.NewS3Backend(context.Background(), storage.S3Options{
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			BucketPrefix: cfg.S3BucketPrefix,
		})
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		backend = storage.NewLocalBackend(cfg.MediaDir, cfg.PublicBaseURL)
	}
	return storage.NewService(backend, cfg.UploadMaxBytes), nil
}

func newServices(cfg config.Config, db *sqlx.DB, q *query.Client, bus *events.Bus) handlers.Services {
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL)
	return handlers.NewServices(db, q, bus, tokens)
}

func newDeps(cfg config.Config, svc handlers.Services, store *storage.Service) *handlers.Deps {
	return handlers.NewDeps(cfg, svc, store, prometheus.DefaultGatherer)
}

func newApp(d *handlers.Deps) *fiber.App {
	return handlers.NewApp(d, handlers.DefaultLimits())
}

// consumeEvents applies cache invalidations published by other instances.
// Every instance reads in its own group so each one sees every message.
func consumeEvents(lc fx.Lifecycle, cfg config.Config, bus *events.Bus, q *query.Client) {
	if !cfg.KafkaEnabled() {
		return
	}
	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, "tokoku-"+bus.Source())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := consumer.Consume(ctx, bus.Handle(q.ApplyRemote)); err != nil && !errors.Is(err, context.Canceled) {
					applog.L().Error().Err(err).Msg("[events] consumer stopped")
				}
			}()
			return nil
		},
		OnStop: func(stop context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stop.Done():
			}
			return consumer.Close()
		},
	})
}

func serve(lc fx.Lifecycle, cfg config.Config, app *fiber.App) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			applog.L().Info().Str("port", cfg.Port).Str("version", cfg.Version).Msg("[http] listening")
			go func() {
				if err := app.Listen(":" + cfg.Port); err != nil {
					applog.L().Error().Err(err).Msg("[http] server exited")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}
