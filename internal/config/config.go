package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Verification store backends.
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Mail backends.
const (
	MailBackendLog  = "log"
	MailBackendSMTP = "smtp"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	HTTP         HTTPConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Verification VerificationConfig
	Mail         MailConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// HTTPConfig holds transport level settings.
type HTTPConfig struct {
	RequestTimeoutSeconds int
	CORSOrigins           []string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	CookieName            string
	CookieSecure          bool
}

// VerificationConfig defines the one-time code policy.
type VerificationConfig struct {
	Store            string
	CodeTTLMinutes   int
	MaxAttempts          int
	RetentionMinutes     int
	PurgeIntervalSeconds int
}

// MailConfig selects how verification codes leave the process.
type MailConfig struct {
	Backend        string
	Sender         string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SMTPRequireTLS bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "gitsim-api"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8080"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		HTTP: HTTPConfig{
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSOrigins:           getEnvAsList("HTTP_CORS_ORIGINS", []string{"http://localhost:3000", "http://127.0.0.1:3000"}),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             os.Getenv("AUTH_JWT_SECRET"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			CookieName:            getEnv("AUTH_COOKIE_NAME", "sq_token"),
			CookieSecure:          getEnvAsBool("AUTH_COOKIE_SECURE", false),
		},
		Verification: VerificationConfig{
			Store:                strings.ToLower(getEnv("VERIFICATION_STORE", StoreRedis)),
			CodeTTLMinutes:       getEnvAsInt("VERIFICATION_CODE_TTL_MINUTES", 5),
			MaxAttempts:          getEnvAsInt("VERIFICATION_MAX_ATTEMPTS", 3),
			RetentionMinutes:     getEnvAsInt("VERIFICATION_RETENTION_MINUTES", 60),
			PurgeIntervalSeconds: getEnvAsInt("VERIFICATION_PURGE_INTERVAL_SECONDS", 60),
		},
		Mail: MailConfig{
			Backend:        strings.ToLower(getEnv("MAIL_BACKEND", MailBackendLog)),
			Sender:         getEnv("MAIL_SENDER", "noreply@example.com"),
			SMTPHost:       os.Getenv("SMTP_HOST"),
			SMTPPort:       getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:       os.Getenv("SMTP_USER"),
			SMTPPassword:   os.Getenv("SMTP_PASSWORD"),
			SMTPRequireTLS: getEnvAsBool("SMTP_REQUIRE_TLS", true),
		},
	}

	if cfg.Auth.JWTSecret == "" && cfg.App.IsDevelopment() {
		cfg.Auth.JWTSecret = "dev-secret"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot safely run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive"))
	}
	switch c.Verification.Store {
	case StoreRedis, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown VERIFICATION_STORE %q", c.Verification.Store))
	}
	if c.Verification.CodeTTLMinutes <= 0 {
		errs = append(errs, errors.New("VERIFICATION_CODE_TTL_MINUTES must be positive"))
	}
	if c.Verification.MaxAttempts <= 0 {
		errs = append(errs, errors.New("VERIFICATION_MAX_ATTEMPTS must be positive"))
	}
	switch c.Mail.Backend {
	case MailBackendLog:
	case MailBackendSMTP:
		if c.Mail.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtp mail backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_BACKEND %q", c.Mail.Backend))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs in a local environment.
func (a AppConfig) IsDevelopment() bool {
	switch strings.ToLower(a.Env) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (h HTTPConfig) RequestTimeout() time.Duration {
	if h.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(h.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued session tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// CodeTTL returns how long an issued code stays verifiable.
func (v VerificationConfig) CodeTTL() time.Duration {
	return time.Duration(v.CodeTTLMinutes) * time.Minute
}

// Retention returns how long a spent or expired record is kept after its expiry.
func (v VerificationConfig) Retention() time.Duration {
	if v.RetentionMinutes <= 0 {
		return 0
	}
	return time.Duration(v.RetentionMinutes) * time.Minute
}

// PurgeInterval returns how often the postgres store sweeps stale records.
func (v VerificationConfig) PurgeInterval() time.Duration {
	if v.PurgeIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(v.PurgeIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
