package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"task-tracker/internal/config"
	"task-tracker/internal/db"
	"task-tracker/pkg/activity"
	"task-tracker/pkg/report"
	"task-tracker/pkg/task"
	"task-tracker/pkg/user"
)

const cachePrefix = "tasktracker:"

// App is the assembled domain layer shared by the server and the CLI.
type App struct {
	Stores   *db.Stores
	Activity *activity.Bus
	Tasks    *task.Manager
	Users    *user.Service
	Reports  *report.Service

	redis *redis.Client
}

// New connects to the configured backends and wires the services on top.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	stores, err := db.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{Stores: stores}
	var cache report.Cache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			stores.Close()
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		rc := report.NewRedisCache(a.redis, cachePrefix, cfg.ReportCacheTTL, log)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unavailable, reports will be rendered on every request", zap.Error(err))
		}
		cache = rc
	}

	a.Activity = activity.NewBus(stores.Activity)
	rec := activity.NewRecorder(a.Activity, log)
	a.Reports = report.NewService(stores.Tasks, cache, log)
	a.Tasks = task.NewManager(stores.Tasks, rec, a.Reports, log)
	a.Users = user.NewService(stores.Users, user.NewPasswordHasher(cfg.BcryptCost), rec, log)

	log.Info("storage ready",
		zap.String("driver", cfg.DatabaseDriver),
		zap.Bool("report_cache", a.redis != nil))
	return a, nil
}

// Ping checks the database is reachable.
func (a *App) Ping(ctx context.Context) error { return a.Stores.Ping(ctx) }

// Close releases every connection the App holds.
func (a *App) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.Stores != nil {
		a.Stores.Close()
	}
}
