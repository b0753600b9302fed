package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingSecret = errors.New("JWT_SECRET environment variable is not set")

type Config struct {
	ServiceName string
	Port        string
	LogLevel    slog.Level

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	JWTSecret       string
	CookieSecure    bool
	SessionSliding  bool
	ProtectedRoutes []string
	PublicRoutes    []string

	PredictionURL     string
	PredictionTimeout time.Duration

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
	BlobPublicURL  string

	NatsURL       string
	MongoURI      string
	MongoDatabase string
	OtelEndpoint  string

	RateLimitMax        int
	RateLimitExpiration time.Duration

	APNsAuthKeyPath string
	APNsKeyID       string
	APNsTeamID      string
	APNsTopic       string
	APNsProduction  bool
}

// Load reads .env.dev when present and then the process environment. A
// missing JWT secret is reported as ErrMissingSecret alongside the loaded
// config, so processes that sign no sessions may ignore it.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.dev"); err != nil {
		slog.Debug("No .env.dev file found, reading from environment variables")
	}

	cfg := &Config{
		ServiceName: getenv("SERVICE_NAME", "patient-portal"),
		Port:        getenv("APP_PORT", "8001"),

		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBName:     os.Getenv("DB_NAME"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		CookieSecure:    getenv("COOKIE_SECURE", "true") == "true",
		SessionSliding:  os.Getenv("SESSION_SLIDING") == "true",
		ProtectedRoutes: splitList(getenv("ROUTES_PROTECTED", "/admin,/doctor,/patient")),
		PublicRoutes:    splitList(getenv("ROUTES_PUBLIC", "/")),

		PredictionURL:     getenv("PREDICTION_URL", "http://localhost:5000"),
		PredictionTimeout: durationSeconds("PREDICTION_TIMEOUT", 30),

		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3Region:       getenv("AWS_REGION", "auto"),
		S3Bucket:       os.Getenv("S3_BUCKET_NAME"),
		S3AccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
		S3SecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3UsePathStyle: os.Getenv("S3_USE_PATH_STYLE") == "true",
		BlobPublicURL:  os.Getenv("BLOB_PUBLIC_URL"),

		NatsURL:       os.Getenv("NATS_URL"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getenv("MONGODB_DATABASE", "patient-portal"),
		OtelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		RateLimitMax:        intOr("RATE_LIMIT_MAX", 100),
		RateLimitExpiration: durationSeconds("RATE_LIMIT_EXPIRATION", 60),

		APNsAuthKeyPath: os.Getenv("APNS_AUTH_KEY_PATH"),
		APNsKeyID:       os.Getenv("APNS_KEY_ID"),
		APNsTeamID:      os.Getenv("APNS_TEAM_ID"),
		APNsTopic:       os.Getenv("APNS_TOPIC"),
		APNsProduction:  os.Getenv("APNS_PRODUCTION") == "true",
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getenv("LOG_LEVEL", "info"))); err != nil {
		slog.Warn("Unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
		cfg.LogLevel = slog.LevelInfo
	}

	if cfg.BlobPublicURL == "" && cfg.S3Endpoint != "" {
		cfg.BlobPublicURL = strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
	}

	if cfg.JWTSecret == "" {
		return cfg, ErrMissingSecret
	}

	return cfg, nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func durationSeconds(key string, fallback int) time.Duration {
	return time.Duration(intOr(key, fallback)) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
