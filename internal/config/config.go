package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Confirmation codes must fit the length accepted by the confirm-email form
const (
	MinConfirmationCodeLength = 6
	MaxConfirmationCodeLength = 10
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Email     EmailConfig
	Locale    LocaleConfig
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
	Port                string
	Env                 string
	LogLevel            string
	AllowedOrigins      []string
	TrustedProxies      []string
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	IdleTimeout         time.Duration
	IPRequestsPerMinute int
}

type AuthConfig struct {
	JWTSecret              string
	AccessTokenExpiry      time.Duration
	BcryptCost             int
	ConfirmationCodeLength int
	ResetCodeTTL           time.Duration
}

// RateLimitConfig bounds the per-form attempt counters.
type RateLimitConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

type EmailConfig struct {
	Provider     string // "smtp", "ses" or "log"
	FromAddress  string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	AWSRegion    string
	Workers      int
	QueueSize    int
}

type LocaleConfig struct {
	DefaultLanguage string
}

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
			Name:              getEnv("DB_NAME", "gatekeeper"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:                getEnv("PORT", "8080"),
			Env:                 env,
			LogLevel:            getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:      parseAllowedOrigins(env),
			TrustedProxies:      splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:         getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:        getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:         getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			IPRequestsPerMinute: getEnvAsInt("IP_REQUESTS_PER_MINUTE", 60),
		},
		Auth: AuthConfig{
			JWTSecret:              jwtSecret,
			AccessTokenExpiry:      getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 30*time.Minute),
			BcryptCost:             getEnvAsInt("BCRYPT_COST", 12),
			ConfirmationCodeLength: getEnvAsInt("CONFIRMATION_CODE_LENGTH", 6),
			ResetCodeTTL:           getEnvAsDuration("RESET_CODE_TTL", 10*time.Minute),
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:     getEnvAsInt("RATE_LIMIT_MAX_ATTEMPTS", 5),
			LockoutDuration: getEnvAsDuration("RATE_LIMIT_LOCKOUT", 10*time.Minute),
		},
		Email: EmailConfig{
			Provider:     strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
			FromAddress:  getEnv("EMAIL_FROM", "noreply@localhost"),
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
			Workers:      getEnvAsInt("EMAIL_WORKERS", 2),
			QueueSize:    getEnvAsInt("EMAIL_QUEUE_SIZE", 100),
		},
		Locale: LocaleConfig{
			DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "en"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.RateLimit.MaxAttempts < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX_ATTEMPTS must be at least 1 (got %d)", cfg.RateLimit.MaxAttempts)
	}

	if n := cfg.Auth.ConfirmationCodeLength; n < MinConfirmationCodeLength || n > MaxConfirmationCodeLength {
		return nil, fmt.Errorf("CONFIRMATION_CODE_LENGTH must be between %d and %d (got %d)",
			MinConfirmationCodeLength, MaxConfirmationCodeLength, n)
	}

	switch cfg.Email.Provider {
	case "smtp", "ses", "log":
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be one of smtp, ses, log (got %q)", cfg.Email.Provider)
	}

	return cfg, nil
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

// DSN returns a postgres:// URL accepted by both pgx and lib/pq
func (c *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
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
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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

func splitList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
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
		"http://localhost:5173",
		"http://localhost:8080",
		"http://localhost",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:8080",
	}
}
