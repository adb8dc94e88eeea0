package config

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingJWTSecret is fatal at startup: issuing tokens without a secret
// would silently produce unverifiable credentials.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required but not set")

type Config struct {
	Env   string
	Port  int
	DBURL string

	JWTSecret    string
	TokenTTLDays int
	BcryptCost   int

	AdminEmail    string
	AdminPassword string
	AdminName     string

	CORSOrigins  []string
	OTLPEndpoint string
}

func Load() Config {
	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		JWTSecret:    strings.TrimSpace(os.Getenv("JWT_SECRET")),
		TokenTTLDays: getEnvInt("TOKEN_TTL_DAYS", 7),
		BcryptCost:   getEnvInt("BCRYPT_COST", 10),

		AdminEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "System Admin"),

		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

// Validate rejects configurations the process must not start with.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}

	return nil
}

func (c Config) TokenTTL() time.Duration {
	days := c.TokenTTLDays

	if days <= 0 {
		days = 7
	}

	return time.Duration(days) * 24 * time.Hour
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "userhub")
	pass := getEnv("DB_PASSWORD", "userhub")
	name := getEnv("DB_NAME", "userhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			return fallback
		}

		return num
	}

	return fallback
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
