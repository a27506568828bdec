package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Session   SessionConfig
	Analytics AnalyticsConfig
	Email     EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	LogFormat      string // "auto", "console" or "json"
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// RedisConfig selects the key-value store. An empty Addr keeps the store in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret          string
	AccessTokenExpiry  time.Duration
	CleanupInterval    time.Duration
	RevocationFailOpen bool
}

// SessionConfig tunes the admin console's lockout and inactivity guard.
type SessionConfig struct {
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	Timeout          time.Duration
	WarningThreshold time.Duration
	RedThreshold     time.Duration
	CheckInterval    time.Duration
	ConsoleIdleLimit time.Duration
	MaxConsoles      int
}

type AnalyticsConfig struct {
	ResetCheckInterval time.Duration
	ResetWindow        time.Duration
	DedupMode          string // "tag", "remote_only" or "none"
	DedupTTL           time.Duration
	DedupSize          int
	Timezone           string
}

type EmailConfig struct {
	Enabled      bool
	Region       string
	FromAddress  string
	NotifyEmails []string
}

var validDedupModes = map[string]bool{"tag": true, "remote_only": true, "none": true}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "automarket"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "auto"),
			AllowedOrigins: parseAllowedOrigins(env),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 12*time.Hour),
			CleanupInterval:    getEnvAsDuration("TOKEN_CLEANUP_INTERVAL", 1*time.Hour),
			RevocationFailOpen: getEnvAsBool("REVOCATION_FAIL_OPEN", false),
		},
		Session: SessionConfig{
			MaxLoginAttempts: getEnvAsInt("SESSION_MAX_LOGIN_ATTEMPTS", 5),
			LockoutDuration:  getEnvAsDuration("SESSION_LOCKOUT_DURATION", 15*time.Minute),
			Timeout:          getEnvAsDuration("SESSION_TIMEOUT", 60*time.Minute),
			WarningThreshold: getEnvAsDuration("SESSION_WARNING_THRESHOLD", 2*time.Minute),
			RedThreshold:     getEnvAsDuration("SESSION_RED_THRESHOLD", 10*time.Minute),
			CheckInterval:    getEnvAsDuration("SESSION_CHECK_INTERVAL", 1*time.Second),
			ConsoleIdleLimit: getEnvAsDuration("CONSOLE_IDLE_LIMIT", 2*time.Hour),
			MaxConsoles:      getEnvAsInt("MAX_CONSOLES", 1000),
		},
		Analytics: AnalyticsConfig{
			ResetCheckInterval: getEnvAsDuration("ANALYTICS_RESET_CHECK_INTERVAL", 1*time.Hour),
			ResetWindow:        getEnvAsDuration("ANALYTICS_RESET_WINDOW", 24*time.Hour),
			DedupMode:          getEnv("ANALYTICS_DEDUP_MODE", "tag"),
			DedupTTL:           getEnvAsDuration("ANALYTICS_DEDUP_TTL", 10*time.Minute),
			DedupSize:          getEnvAsInt("ANALYTICS_DEDUP_SIZE", 4096),
			Timezone:           getEnv("ANALYTICS_TIMEZONE", "Local"),
		},
		Email: EmailConfig{
			Enabled:      getEnvAsBool("EMAIL_ENABLED", false),
			Region:       getEnv("AWS_REGION", "us-east-1"),
			FromAddress:  getEnv("EMAIL_FROM", "noreply@automarket.local"),
			NotifyEmails: splitList(getEnv("EMAIL_NOTIFY", "")),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.Session.validate(); err != nil {
		return nil, err
	}

	if !validDedupModes[cfg.Analytics.DedupMode] {
		return nil, fmt.Errorf("ANALYTICS_DEDUP_MODE must be one of tag, remote_only, none (got %q)", cfg.Analytics.DedupMode)
	}

	if _, err := cfg.Analytics.Location(); err != nil {
		return nil, fmt.Errorf("ANALYTICS_TIMEZONE: %w", err)
	}

	return cfg, nil
}

func (s *SessionConfig) validate() error {
	if s.MaxLoginAttempts < 1 {
		return fmt.Errorf("SESSION_MAX_LOGIN_ATTEMPTS must be positive")
	}
	if s.CheckInterval <= 0 {
		return fmt.Errorf("SESSION_CHECK_INTERVAL must be positive")
	}
	if s.WarningThreshold >= s.Timeout {
		return fmt.Errorf("SESSION_WARNING_THRESHOLD (%s) must be shorter than SESSION_TIMEOUT (%s)",
			s.WarningThreshold, s.Timeout)
	}
	return nil
}

// Location resolves the timezone that defines "today" for daily counters.
func (a *AnalyticsConfig) Location() (*time.Location, error) {
	return time.LoadLocation(a.Timezone)
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return splitList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
