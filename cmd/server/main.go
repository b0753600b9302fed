package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	_ "github.com/jackc/pgx/v5/stdlib"

	"patient-portal/internal/api"
	"patient-portal/internal/config"
	"patient-portal/internal/dal"
	"patient-portal/internal/events"
	"patient-portal/internal/legacy"
	"patient-portal/internal/model"
	"patient-portal/internal/prediction"
	"patient-portal/internal/report"
	"patient-portal/internal/repository"
	"patient-portal/internal/service"
	"patient-portal/internal/session"
	"patient-portal/internal/storage"
	"patient-portal/internal/tracing"
	_ "patient-portal/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "patient-portal",
		Short:        "Hospital patient portal server",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil && !errors.Is(err, config.ErrMissingSecret) {
				return err
			}
			dir, _ := cmd.Flags().GetString("dir")
			return migrate(cmd.Context(), cfg, dir)
		},
	}
	cmd.Flags().String("dir", "migrations", "Path to migrations directory")
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil && !errors.Is(err, config.ErrMissingSecret) {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			pass, _ := cmd.Flags().GetString("password")
			first, _ := cmd.Flags().GetString("first-name")
			last, _ := cmd.Flags().GetString("last-name")
			return seed(cmd.Context(), cfg, email, pass, first, last)
		},
	}
	cmd.Flags().String("email", "admin@hospital.local", "Administrator email")
	cmd.Flags().String("password", "", "Administrator password (required)")
	cmd.Flags().String("first-name", "System", "Administrator first name")
	cmd.Flags().String("last-name", "Admin", "Administrator last name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.SetDefault(api.NewLogger(os.Stdout, cfg.ServiceName, cfg.LogLevel))
	slog.Info("Logger initialized")

	shutdownTracer, err := tracing.InitTracerProvider(cfg.ServiceName, cfg.OtelEndpoint)
	if err != nil {
		return fmt.Errorf("initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			slog.Error("Error shutting down tracer provider", slog.String("error", err.Error()))
		}
	}()

	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	userRepo := repository.NewPostgresUserRepository(db)
	profileRepo := repository.NewPostgresProfileRepository(db)
	sessionRepo := repository.NewPostgresSessionRepository(db)
	resultRepo := repository.NewPostgresResultRepository(db)
	tokenRepo := repository.NewPostgresDeviceTokenRepository(db)

	blobs, err := storage.NewS3Store(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize blob storage: %w", err)
	}

	var publisher events.EventPublisher
	if cfg.NatsURL != "" {
		natsPublisher, err := events.NewNatsPublisher(cfg.NatsURL)
		if err != nil {
			slog.Warn("Failed to connect to NATS, result events disabled", slog.String("error", err.Error()))
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
			slog.Info("Successfully connected to NATS.")
		}
	}

	predictor := prediction.NewClient(cfg.PredictionURL, cfg.PredictionTimeout)

	userService := service.NewUserService(userRepo, profileRepo, blobs)
	resultService := service.NewResultService(userRepo, resultRepo, tokenRepo, predictor, blobs, publisher)

	sessions := session.NewManager(session.NewCodec(cfg.JWTSecret), sessionRepo, cfg.CookieSecure)

	router := &api.Router{
		ServiceName:         cfg.ServiceName,
		Sessions:            sessions,
		Guard:               api.NewRouteGuard(cfg.ProtectedRoutes, cfg.PublicRoutes, sessions, cfg.SessionSliding),
		Store:               dal.NewStore(userRepo, profileRepo, sessionRepo, resultRepo),
		Auth:                api.NewAuthHandler(userService, sessions),
		Admin:               api.NewAdminHandler(userService),
		Doctor:              api.NewDoctorHandler(resultService, report.ChromeRenderer{Timeout: 30 * time.Second}),
		Patient:             api.NewPatientHandler(resultService),
		Settings:            api.NewSettingsHandler(userService),
		RateLimitMax:        cfg.RateLimitMax,
		RateLimitExpiration: cfg.RateLimitExpiration,
	}

	if cfg.MongoURI != "" {
		client, err := legacy.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return fmt.Errorf("connect to MongoDB: %w", err)
		}
		defer client.Disconnect(context.Background())

		mdb := client.Database(cfg.MongoDatabase)
		router.Legacy = legacy.NewHandler(legacy.NewAccounts(mdb), legacy.NewMessages(mdb))
		slog.Info("Legacy document API mounted under /api")
	}

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	router.SetupRoutes(app)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening", slog.String("service", cfg.ServiceName), slog.String("port", cfg.Port))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	slog.Info("Shutting down server...")
	return app.ShutdownWithTimeout(10 * time.Second)
}

func connectDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("pgx", cfg.DatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	slog.Info("Successfully connected to the database.")
	return db, nil
}

func migrate(ctx context.Context, cfg *config.Config, dir string) error {
	slog.Info("Running database migrations...")

	db, err := sql.Open("pgx", cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect to database for migration: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("goose: run migrations: %w", err)
	}

	slog.Info("Migrations applied successfully!")
	return nil
}

func seed(ctx context.Context, cfg *config.Config, email, pass, first, last string) error {
	db, err := connectDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	users := service.NewUserService(
		repository.NewPostgresUserRepository(db),
		repository.NewPostgresProfileRepository(db),
		nil,
	)

	_, err = users.SignUp(ctx, service.NewUser{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Role:      model.RoleAdmin,
	})
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		slog.Info("Administrator already exists, resetting password", slog.String("email", email))
	case err != nil:
		return fmt.Errorf("create administrator: %w", err)
	}

	if err := users.ResetPassword(ctx, email, pass); err != nil {
		return fmt.Errorf("set administrator password: %w", err)
	}

	slog.Info("Administrator ready", slog.String("email", email))
	return nil
}
