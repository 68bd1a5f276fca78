package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"task-tracker/internal/api"
	"task-tracker/internal/app"
	"task-tracker/internal/config"
	"task-tracker/internal/logger"
	"task-tracker/pkg/activity"
	"task-tracker/pkg/report"
	"task-tracker/pkg/task"
	"task-tracker/pkg/user"
)

type services struct {
	fx.Out

	Tasks    *task.Manager
	Users    *user.Service
	Reports  *report.Service
	Activity *activity.Bus
	DB       api.Pinger
}

func newApp(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*app.App, error) {
	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			a.Close()
			return nil
		},
	})
	return a, nil
}

func provideServices(a *app.App) services {
	return services{
		Tasks:    a.Tasks,
		Users:    a.Users,
		Reports:  a.Reports,
		Activity: a.Activity,
		DB:       a,
	}
}

func newHTTPServer(cfg *config.Config, srv *api.Server) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func serverLifecycle(lc fx.Lifecycle, cfg *config.Config, server *http.Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", server.Addr)
			if err != nil {
				return err
			}
			logger.Info("task-tracker listening", zap.String("addr", server.Addr))
			go func() { // non-blocking server start
				if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
			defer cancel()
			logger.Info("shutting down")
			return server.Shutdown(ctx)
		},
	})
}

func main() {
	fx.New(
		fx.Provide(
			config.NewConfig,
			logger.NewLogger,
			newApp,
			provideServices,
			api.New,
			newHTTPServer,
		),
		fx.Invoke(
			func(log *zap.Logger) { zap.ReplaceGlobals(log) },
			serverLifecycle,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			zlogger := fxevent.ZapLogger{Logger: log}
			zlogger.UseLogLevel(zap.DebugLevel)
			return &zlogger
		}),
	).Run()
}
