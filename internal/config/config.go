package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"
)

// Supported values of DATABASE_DRIVER.
const (
	DriverSQLite   = "sqlite"   // gorm + sqlite file
	DriverPostgres = "postgres" // gorm + postgres
	DriverPgx      = "pgx"      // pgx pool, hand-written SQL
)

// Config holds the settings shared by the server, the CLI and the desktop client.
type Config struct {
	Port            int
	DatabaseDriver  string
	DatabaseURL     string
	RedisURL        string // empty disables the report cache
	ReportCacheTTL  time.Duration
	LogLevel        zapcore.Level
	BcryptCost      int
	ShutdownTimeout time.Duration
	APIURL          string // base URL clients use to reach the server
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// Load reads an optional .env file, an optional tasktracker.yaml in the
// working directory and the environment, in increasing order of precedence.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("tasktracker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("DATABASE_DRIVER", DriverSQLite)
	v.SetDefault("DATABASE_URL", "db/tasks.db")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REPORT_CACHE_TTL", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("API_URL", "http://localhost:8080")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading tasktracker.yaml: %w", err)
		}
	}

	level, err := parseLevel(v.GetString("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            v.GetInt("PORT"),
		DatabaseDriver:  strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RedisURL:        v.GetString("REDIS_URL"),
		ReportCacheTTL:  v.GetDuration("REPORT_CACHE_TTL"),
		LogLevel:        level,
		BcryptCost:      v.GetInt("BCRYPT_COST"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		APIURL:          strings.TrimRight(v.GetString("API_URL"), "/"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres, DriverPgx:
	default:
		return fmt.Errorf("DATABASE_DRIVER %q is not one of sqlite, postgres, pgx", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	if c.ReportCacheTTL <= 0 {
		return fmt.Errorf("REPORT_CACHE_TTL must be positive, got %s", c.ReportCacheTTL)
	}
	return nil
}

// parseLevel accepts zap's level names in any case; empty means info.
func parseLevel(s string) (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}

// Result exposes the loaded configuration to an fx graph.
type Result struct {
	fx.Out

	Config   *Config
	LogLevel zapcore.Level
}

// NewConfig is the fx constructor wrapping Load.
func NewConfig() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}
	return Result{Config: cfg, LogLevel: cfg.LogLevel}, nil
}
