package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"naspac-portal/internal/backend"
	"naspac-portal/internal/config"
	"naspac-portal/internal/domain"
	"naspac-portal/internal/handler"
	"naspac-portal/internal/messaging"
	"naspac-portal/internal/middleware"
	"naspac-portal/internal/observability"
	"naspac-portal/internal/repository"
	"naspac-portal/internal/security"
	"naspac-portal/internal/service"
	"naspac-portal/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)

	slog.Info("starting portal",
		slog.String("environment", cfg.Environment),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.String("backend_url", cfg.BackendURL))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	openCtx, openCancel := context.WithTimeout(ctx, 10*time.Second)
	repo, err := repository.Open(openCtx, repository.Options{
		Driver:      cfg.StorageDriver,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		Retention:   cfg.StorageRetention,
	})
	openCancel()
	if err != nil {
		slog.Error("failed to open client storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("client storage ready", slog.String("driver", cfg.StorageDriver))

	api := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)

	hub := websocket.NewHub()
	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("hub error", slog.String("error", err.Error()))
		}
	}()
	slog.Info("websocket hub started")

	var (
		events domain.SessionEventPublisher
		rmq    *messaging.RabbitMQ
	)
	if cfg.RabbitMQURL != "" {
		rmqCtx, rmqCancel := context.WithTimeout(ctx, 60*time.Second)
		rmq, err = messaging.NewRabbitMQWithRetry(rmqCtx, cfg.RabbitMQURL)
		rmqCancel()
		if err != nil {
			slog.Error("failed to connect to rabbitmq", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer rmq.Close()
		events = rmq

		// tabs of a client learn about logins and logouts made elsewhere
		consumer := messaging.NewSessionEventConsumer(rmq, "session.#", func(ctx context.Context, event *domain.SessionEvent) {
			if err := hub.Send(event.ClientID, websocket.TypeSession, event); err != nil {
				observability.FromContext(ctx).Warn("failed to relay session event", "error", err)
			}
		})
		if err := consumer.Start(ctx); err != nil {
			slog.Error("failed to start session event consumer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("session events enabled", slog.String("exchange", messaging.SessionExchange))
	}

	csrf := security.NewTokenManager()
	registryOpts := []service.RegistryOption{
		service.WithNoticeListener(func(clientID string, notice domain.Notice) {
			_ = hub.Send(clientID, websocket.TypeNotice, notice)
		}),
	}
	if events != nil {
		registryOpts = append(registryOpts, service.WithSessionEvents(events))
	}
	registry := service.NewClientRegistry(repo, api, csrf, service.RegistryConfig{
		InitTimeout: cfg.SessionInitTimeout,
		IdleTTL:     cfg.ClientIdleTTL,
		Retention:   cfg.StorageRetention,
	}, registryOpts...)
	defer registry.Close()
	go registry.Run(ctx)
	slog.Info("client cleanup task started")

	authLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)
	defer authLimiter.Stop()
	apiLimiter := middleware.NewRateLimiter(20, 50)
	defer apiLimiter.Stop()

	rt := &routes{
		cfg:           cfg,
		registry:      registry,
		auth:          service.NewAuthService(api, events),
		notifications: service.NewNotificationService(),
		hub:           hub,
		csrf:          csrf,
		authLimiter:   authLimiter,
		apiLimiter:    apiLimiter,
		readiness: map[string]handler.Checker{
			"storage":  repo.Ping,
			"backend":  api.Ping,
			"rabbitmq": rabbitCheck(rmq),
		},
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rt.handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("portal listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	slog.Info("server stopped gracefully")
}

func rabbitCheck(rmq *messaging.RabbitMQ) handler.Checker {
	return func(context.Context) error {
		if rmq == nil {
			return handler.ErrDisabled
		}
		if rmq.IsClosed() {
			return errors.New("connection closed")
		}
		return nil
	}
}
