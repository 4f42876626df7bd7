package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/gosuda/reservo/internal/domain"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Server   ServerConfig
	Booking  BookingConfig
	Loyalty  LoyaltyConfig
	Slack    SlackConfig
	// Dev relaxes production-only warnings.
	Dev bool
}

type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr           string
	Password       string //nolint:gosec // G117: Redis connection config
	DB             int
	TenantCacheTTL time.Duration
}

// JWTConfig holds the shared secret used to verify bearer tokens.
type JWTConfig struct {
	Secret string //nolint:gosec // G117: JWT signing secret config
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimitRPS    float64
	RateLimitBurst  int
}

// BookingConfig drives the availability engine and the booking writer.
type BookingConfig struct {
	SlotMinutes     int
	DefaultTimezone string
	InitialStatus   domain.ReservationStatus
	MaxAdvanceDays  int
}

// LoyaltyConfig holds the discount unlock rule.
type LoyaltyConfig struct {
	IndividualThreshold int
	PackageThreshold    int
	IndividualAmount    decimal.Decimal
	PackageAmount       decimal.Decimal
}

// SlackConfig is optional; without a bot token notifications are only logged.
type SlackConfig struct {
	BotToken     string
	StaffChannel string
}

// env reads RESERVO_ variables and keeps the first parse error.
type env struct {
	err error
}

func (e *env) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *env) int(key string, fallback int) int {
	n, err := getEnvInt(key, fallback)
	e.fail(err)
	return n
}

func (e *env) bool(key string, fallback bool) bool {
	b, err := getEnvBool(key, fallback)
	e.fail(err)
	return b
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	d, err := getEnvDuration(key, fallback)
	e.fail(err)
	return d
}

func (e *env) float(key string, fallback float64) float64 {
	f, err := getEnvFloat(key, fallback)
	e.fail(err)
	return f
}

func (e *env) decimal(key string, fallback decimal.Decimal) decimal.Decimal {
	d, err := getEnvDecimal(key, fallback)
	e.fail(err)
	return d
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only. In production,
// sensitive values (JWT secret, DB password) must be set explicitly.
func Load() (*Config, error) {
	var e env

	cfg := &Config{
		Log: LogConfig{
			Level:  getEnv("RESERVO_LOG_LEVEL", "info"),
			Format: getEnv("RESERVO_LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("RESERVO_DB_HOST", "localhost"),
			Port:     e.int("RESERVO_DB_PORT", 5432),
			User:     getEnv("RESERVO_DB_USER", "reservo"),
			Password: getEnv("RESERVO_DB_PASSWORD", ""),
			DBName:   getEnv("RESERVO_DB_NAME", "reservo_dev"),
			SSLMode:  getEnv("RESERVO_DB_SSLMODE", "disable"),
			MaxConns: e.int("RESERVO_DB_MAX_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:           getEnv("RESERVO_REDIS_ADDR", "localhost:6379"),
			Password:       getEnv("RESERVO_REDIS_PASSWORD", ""),
			DB:             e.int("RESERVO_REDIS_DB", 0),
			TenantCacheTTL: e.duration("RESERVO_TENANT_CACHE_TTL", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret: getEnv("RESERVO_JWT_SECRET", ""),
		},
		Server: ServerConfig{
			Addr:            getEnv("RESERVO_SERVER_ADDR", ":8080"),
			ReadTimeout:     e.duration("RESERVO_SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    e.duration("RESERVO_SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: e.duration("RESERVO_SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			CORSOrigins:     getEnvList("RESERVO_CORS_ORIGINS", []string{"http://localhost:3000"}),
			RateLimitRPS:    e.float("RESERVO_RATE_LIMIT_RPS", 20),
			RateLimitBurst:  e.int("RESERVO_RATE_LIMIT_BURST", 40),
		},
		Booking: BookingConfig{
			SlotMinutes:     e.int("RESERVO_SLOT_MINUTES", 60),
			DefaultTimezone: getEnv("RESERVO_DEFAULT_TIMEZONE", domain.DefaultTimezone),
			InitialStatus:   domain.ReservationStatus(strings.ToLower(getEnv("RESERVO_INITIAL_STATUS", string(domain.ReservationPending)))),
			MaxAdvanceDays:  e.int("RESERVO_MAX_ADVANCE_DAYS", 90),
		},
		Loyalty: LoyaltyConfig{
			IndividualThreshold: e.int("RESERVO_LOYALTY_INDIVIDUAL_THRESHOLD", 5),
			PackageThreshold:    e.int("RESERVO_LOYALTY_PACKAGE_THRESHOLD", 3),
			IndividualAmount:    e.decimal("RESERVO_LOYALTY_INDIVIDUAL_AMOUNT", decimal.NewFromInt(20)),
			PackageAmount:       e.decimal("RESERVO_LOYALTY_PACKAGE_AMOUNT", decimal.NewFromInt(40)),
		},
		Slack: SlackConfig{
			BotToken:     getEnv("RESERVO_SLACK_BOT_TOKEN", ""),
			StaffChannel: getEnv("RESERVO_SLACK_STAFF_CHANNEL", ""),
		},
		Dev: e.bool("RESERVO_DEV", false),
	}
	if e.err != nil {
		return nil, fmt.Errorf("config.Load: %w", e.err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	// JWT secret is required (no insecure default).
	if c.JWT.Secret == "" {
		return errors.New("RESERVO_JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("RESERVO_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.SSLMode == "disable" && !c.Dev {
		log.Warn().Msg("RESERVO_DB_SSLMODE=disable is insecure for production; set to 'require' or 'verify-full'")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("RESERVO_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("RESERVO_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("RESERVO_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Redis.TenantCacheTTL <= 0 {
		return fmt.Errorf("RESERVO_TENANT_CACHE_TTL must be positive, got %s", c.Redis.TenantCacheTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("RESERVO_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("RESERVO_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst < 1 {
		return fmt.Errorf("RESERVO_RATE_LIMIT_RPS/BURST must be positive, got %g/%d", c.Server.RateLimitRPS, c.Server.RateLimitBurst)
	}

	// The slot length must tile an hour or a day evenly.
	if c.Booking.SlotMinutes < 5 || c.Booking.SlotMinutes > 240 {
		return fmt.Errorf("RESERVO_SLOT_MINUTES must be 5-240, got %d", c.Booking.SlotMinutes)
	}
	if _, err := time.LoadLocation(c.Booking.DefaultTimezone); err != nil {
		return fmt.Errorf("RESERVO_DEFAULT_TIMEZONE %q: %w", c.Booking.DefaultTimezone, err)
	}
	if c.Booking.InitialStatus != domain.ReservationPending && c.Booking.InitialStatus != domain.ReservationConfirmed {
		return fmt.Errorf("RESERVO_INITIAL_STATUS must be pending or confirmed, got %q", c.Booking.InitialStatus)
	}
	if c.Booking.MaxAdvanceDays < 0 {
		return fmt.Errorf("RESERVO_MAX_ADVANCE_DAYS must be >= 0, got %d", c.Booking.MaxAdvanceDays)
	}

	if c.Loyalty.IndividualThreshold < 1 || c.Loyalty.PackageThreshold < 1 {
		return fmt.Errorf("loyalty thresholds must be >= 1, got %d/%d", c.Loyalty.IndividualThreshold, c.Loyalty.PackageThreshold)
	}
	if c.Loyalty.IndividualAmount.IsNegative() || c.Loyalty.PackageAmount.IsNegative() {
		return errors.New("loyalty discount amounts must not be negative")
	}

	if c.Slack.BotToken != "" && c.Slack.StaffChannel == "" {
		return errors.New("RESERVO_SLACK_STAFF_CHANNEL is required when RESERVO_SLACK_BOT_TOKEN is set")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing %s=%q as decimal: %w", key, v, err)
	}
	return d, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
