package app

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer     string // Issuer claim for all tokens (default: certauth)
	SigningKey string // Required: HS256 signing key, at least 32 bytes
	TOTPIssuer string // Label shown in authenticator apps (default: FumiTec Certificates)

	DatabaseFile         string        // Path to SQLite database file (default: ./certauth.db)
	SetupTokenTTL        time.Duration // Lifetime of pending setup tokens (default: 24h)
	VerifyTokenTTL       time.Duration // Lifetime of pending verification tokens (default: 10m)
	SessionTokenTTL      time.Duration // Lifetime of session tokens (default: 24h)
	ResetTokenTTL        time.Duration // Lifetime of password reset tokens (default: 30m)
	AccessLogRetention   time.Duration // How long audit rows are kept (default: 90 days)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	SeedEmail    string // Optional: admin account created when the users table is empty
	SeedPassword string // Optional: password for the seed account

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

var ErrMissingSigningKey = errors.New("AUTH_SIGNING_KEY is required and must be at least 32 bytes")

func LoadConfig() Config {
	return Config{
		Issuer:     getEnvOrDefault("AUTH_ISSUER", "certauth"),
		SigningKey: os.Getenv("AUTH_SIGNING_KEY"),
		TOTPIssuer: getEnvOrDefault("AUTH_TOTP_ISSUER", "FumiTec Certificates"),

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "certauth.db"),
		SetupTokenTTL:        getEnvDurationOrDefault("AUTH_SETUP_TOKEN_TTL", 24*time.Hour),
		VerifyTokenTTL:       getEnvDurationOrDefault("AUTH_VERIFY_TOKEN_TTL", 10*time.Minute),
		SessionTokenTTL:      getEnvDurationOrDefault("AUTH_SESSION_TOKEN_TTL", 24*time.Hour),
		ResetTokenTTL:        getEnvDurationOrDefault("AUTH_RESET_TOKEN_TTL", 30*time.Minute),
		AccessLogRetention:   getEnvDurationOrDefault("AUTH_ACCESS_LOG_RETENTION", 90*24*time.Hour),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),

		SeedEmail:    os.Getenv("AUTH_SEED_EMAIL"),
		SeedPassword: os.Getenv("AUTH_SEED_PASSWORD"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}
}

// Validate rejects configurations the service must not start with. There is
// deliberately no generated fallback for the signing key: a random key would
// silently invalidate every outstanding token on restart.
func (c Config) Validate() error {
	if len(c.SigningKey) < 32 {
		return ErrMissingSigningKey
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// e.g. "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// bare integers are read as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
