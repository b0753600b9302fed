package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"patient-portal/internal/api"
	"patient-portal/internal/config"
	"patient-portal/internal/notifier"
	"patient-portal/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil && !errors.Is(err, config.ErrMissingSecret) {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.SetDefault(api.NewLogger(os.Stdout, "notification-worker", cfg.LogLevel))
	slog.Info("Logger initialized")

	if cfg.NatsURL == "" {
		slog.Error("NATS_URL environment variable is not set")
		os.Exit(1)
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL())
	if err != nil {
		slog.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	client, err := notifier.NewAPNsClient(notifier.APNsConfig{
		AuthKeyPath: cfg.APNsAuthKeyPath,
		KeyID:       cfg.APNsKeyID,
		TeamID:      cfg.APNsTeamID,
		Topic:       cfg.APNsTopic,
		Production:  cfg.APNsProduction,
	})
	if err != nil {
		slog.Error("Failed to create APNs client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// A nil *apns2.Client must not end up inside the interface.
	var pusher notifier.Pusher
	if client != nil {
		pusher = client
	}

	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		slog.Error("Failed to connect to NATS", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer nc.Drain()

	worker := notifier.NewWorker(pusher, repository.NewPostgresDeviceTokenRepository(db), cfg.APNsTopic)
	if _, err := worker.Subscribe(nc); err != nil {
		slog.Error("Failed to subscribe", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Notification worker started, waiting for events...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down notification worker...")
}
