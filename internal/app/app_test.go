package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"task-tracker/internal/config"
	"task-tracker/pkg/report"
	"task-tracker/pkg/task"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabaseURL:    filepath.Join(t.TempDir(), "tasks.db"),
		ReportCacheTTL: time.Minute,
		BcryptCost:     4,
	}
}

func TestNewWiresServices(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.NoError(t, a.Ping(ctx))

	created, err := a.Tasks.Create(ctx, "wired", "")
	require.NoError(t, err)
	_, err = a.Tasks.Transition(ctx, created.ID, int(task.StatusCompleted))
	require.NoError(t, err)

	n, err := a.Activity.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	body, err := a.Reports.Generate(ctx, report.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(body))

	_, ok := a.Reports.CacheStats()
	assert.False(t, ok)
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "ftp://nowhere"

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
