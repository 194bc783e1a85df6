package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"

	"realestate/internal/config"
	"realestate/internal/events"
	"realestate/internal/observability"
	"realestate/internal/server"
	"realestate/internal/services"
	"realestate/pkg/logger"
	"realestate/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.AppName, cfg.LogLevel)
	observability.Register()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res := newResources(cfg)
	defer func() {
		if err := res.Close(); err != nil {
			logger.Log.WithError(err).Warn("error while closing backends")
		}
	}()

	app, err := build(ctx, cfg, res)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to initialize service")
	}

	// --- Start HTTP Server ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Log.WithField("port", cfg.AppPort).Info("starting server")
		if err := app.http.Listen(cfg.AppPort); err != nil {
			logger.Log.WithError(err).Fatal("server failed to start")
		}
	}()

	<-quit
	logger.Log.Info("shutting down server...")

	cancel()
	app.stop()
	if err := app.http.Shutdown(); err != nil {
		logger.Log.WithError(err).Error("error during Fiber shutdown")
	}
	logger.Log.Info("server gracefully stopped")
}

type application struct {
	http *fiber.App
	stop func()
}

// build wires the backends selected by cfg into a runnable application.
func build(ctx context.Context, cfg *config.Config, res *resources) (*application, error) {
	repo, err := res.propertyRepository(ctx)
	if err != nil {
		return nil, err
	}
	searchCache, err := res.searchCache()
	if err != nil {
		return nil, err
	}

	var publisher services.EventPublisher
	var mq *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mq, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange})
		if err != nil {
			return nil, err
		}
		res.onClose(mq.Close)
		publisher = mq
	}

	propertyService := services.NewPropertyService(repo, searchCache, publisher)

	if mq != nil {
		if err := mq.Consume(ctx, events.CacheInvalidationHandler(propertyService)); err != nil {
			return nil, err
		}
	}

	authenticator, err := res.authenticator(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := res.sessionStore()
	if err != nil {
		return nil, err
	}
	authService := services.NewAuthService(authenticator, sessions, cfg.JWTSecret, cfg.SessionTTL)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SessionPurgeSpec, func() {
		if _, err := authService.PurgeExpiredSessions(ctx); err != nil {
			logger.Log.WithError(err).Warn("session purge failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("invalid SESSION_PURGE_SPEC %q: %w", cfg.SessionPurgeSpec, err)
	}
	scheduler.Start()

	fiberApp := server.New(server.Deps{
		AppName:     cfg.AppName,
		Properties:  propertyService,
		Auth:        authService,
		CORSOrigins: cfg.CORSOrigins,
		RequestLog:  true,
	})

	return &application{
		http: fiberApp,
		stop: func() { <-scheduler.Stop().Done() },
	}, nil
}
