package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, "db/tasks.db", cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, 30*time.Second, cfg.ReportCacheTTL)
	assert.Equal(t, zapcore.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "PGX")
	t.Setenv("DATABASE_URL", "postgres://localhost/tasks")
	t.Setenv("REPORT_CACHE_TTL", "2m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("API_URL", "http://tasks.internal:9090/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverPgx, cfg.DatabaseDriver)
	assert.Equal(t, "postgres://localhost/tasks", cfg.DatabaseURL)
	assert.Equal(t, 2*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "http://tasks.internal:9090", cfg.APIURL)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BCRYPT_COST=10\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasktracker.yaml"), []byte("port: 7000\nlog_level: warn\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BCRYPT_COST") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, zapcore.WarnLevel, cfg.LogLevel)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown driver", "DATABASE_DRIVER", "mysql"},
		{"port out of range", "PORT", "70000"},
		{"zero ttl", "REPORT_CACHE_TTL", "0s"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
		{"Warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"verbose", "warning", "3"} {
		_, err := parseLevel(bad)
		assert.ErrorContains(t, err, "LOG_LEVEL", bad)
	}
}

func TestLoadErrorLevel(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, zapcore.ErrorLevel, cfg.LogLevel)
}
