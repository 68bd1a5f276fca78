package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task-tracker/internal/config"
	"task-tracker/pkg/activity"
	"task-tracker/pkg/task"
	"task-tracker/pkg/user"
)

// Connect opens and pings a pgx connection pool.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// OpenGorm opens a gorm handle for the sqlite or postgres driver. Queries are
// logged through log: every statement at debug level, slow ones and errors
// otherwise.
func OpenGorm(driver, url string, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.DriverSQLite:
		if dir := filepath.Dir(sqlitePath(url)); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(sqliteDSN(url))
	case config.DriverPostgres:
		dialector = postgres.Open(url)
	default:
		return nil, fmt.Errorf("gorm does not serve driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == config.DriverSQLite {
		// sqlite allows a single writer; serialise through one connection.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// sqliteDSN enables foreign key enforcement, which sqlite leaves off per connection.
func sqliteDSN(url string) string {
	if strings.Contains(url, "_foreign_keys=") {
		return url
	}
	if strings.Contains(url, "?") {
		return url + "&_foreign_keys=on"
	}
	return url + "?_foreign_keys=on"
}

func sqlitePath(url string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(url, "file:"), "?")
	return path
}

type gormWriter struct{ log *zap.SugaredLogger }

func (w gormWriter) Printf(format string, args ...any) { w.log.Infof(format, args...) }

func newGormLogger(log *zap.Logger) logger.Interface {
	if log == nil {
		return logger.Default.LogMode(logger.Silent)
	}
	level := logger.Warn
	if log.Core().Enabled(zapcore.DebugLevel) {
		level = logger.Info
	}
	return logger.New(gormWriter{log.Named("gorm").Sugar()}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Stores bundles the persistence backends selected by DATABASE_DRIVER.
type Stores struct {
	Tasks    task.Store
	Users    user.Store
	Activity activity.Store

	ping  func(context.Context) error
	close func()
}

// Open connects to the configured database, builds every store on it and
// makes sure their tables exist. Users come first: tasks reference them.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Stores, error) {
	var s *Stores
	switch cfg.DatabaseDriver {
	case config.DriverPgx:
		pool, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s = &Stores{
			Tasks:    task.NewPgStore(pool),
			Users:    user.NewPgStore(pool),
			Activity: activity.NewPgStore(pool),
			ping:     pool.Ping,
			close:    pool.Close,
		}
	default:
		db, err := OpenGorm(cfg.DatabaseDriver, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		s = &Stores{
			Tasks:    task.NewGormStore(db),
			Users:    user.NewGormStore(db),
			Activity: activity.NewGormStore(db),
			ping:     sqlDB.PingContext,
			close:    func() { sqlDB.Close() },
		}
	}

	for _, step := range []struct {
		table  string
		ensure func(context.Context) error
	}{
		{"users", s.Users.EnsureTable},
		{"tasks", s.Tasks.EnsureTable},
		{"activity", s.Activity.EnsureTable},
	} {
		if err := step.ensure(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("ensure %s table: %w", step.table, err)
		}
	}
	return s, nil
}

// Ping checks the database is reachable.
func (s *Stores) Ping(ctx context.Context) error { return s.ping(ctx) }

// Close releases the underlying connections.
func (s *Stores) Close() { s.close() }
