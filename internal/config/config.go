package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config is the full runtime configuration, read once at startup.
type Config struct {
	Port        int
	DatabaseURL string

	JWTSecret       string
	AccessTokenTTL  int // seconds
	RefreshTokenTTL int // seconds

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
	DashboardURL string
}

// Load reads configuration from the environment. Only DATABASE_URL and
// JWT_SECRET are mandatory; the rest default to local development values.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            envInt("PORT", 8080),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  envInt("ACCESS_TOKEN_TTL", 900),
		RefreshTokenTTL: envInt("REFRESH_TOKEN_TTL", 7*24*3600),
		RedisAddr:       envString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),
		MinioEndpoint:   envString("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:  envString("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:  envString("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:     os.Getenv("MINIO_USE_SSL") == "true",
		SMTPHost:        envString("SMTP_HOST", "localhost"),
		SMTPPort:        envInt("SMTP_PORT", 587),
		SMTPUser:        os.Getenv("SMTP_USER"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		SenderEmail:     envString("SENDER_EMAIL", "no-reply@glowdesk.app"),
		DashboardURL:    envString("DASHBOARD_URL", "http://localhost:3000"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
