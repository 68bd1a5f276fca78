package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"

	"task-tracker/internal/app"
	"task-tracker/internal/cli"
	"task-tracker/internal/config"
	"task-tracker/internal/logger"
)

func main() {
	c := cli.New(func(ctx context.Context) (*app.App, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		// Only warnings and errors reach the terminal; stdout carries command output.
		log, err := logger.New(max(cfg.LogLevel, zapcore.WarnLevel))
		if err != nil {
			return nil, err
		}
		return app.New(ctx, cfg, log)
	})

	err := c.Command().ExecuteContext(context.Background())
	c.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
