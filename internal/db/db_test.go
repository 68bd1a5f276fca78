package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"task-tracker/internal/config"
	"task-tracker/pkg/storage"
	"task-tracker/pkg/task"
	"task-tracker/pkg/user"
)

func TestSQLiteDSN(t *testing.T) {
	tests := []struct{ in, want string }{
		{"db/tasks.db", "db/tasks.db?_foreign_keys=on"},
		{"file:tasks.db?cache=shared", "file:tasks.db?cache=shared&_foreign_keys=on"},
		{"tasks.db?_foreign_keys=off", "tasks.db?_foreign_keys=off"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sqliteDSN(tt.in))
	}
	assert.Equal(t, "tasks.db", sqlitePath("file:tasks.db?cache=shared"))
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabaseURL:    filepath.Join(t.TempDir(), "nested", "tasks.db"),
	}

	stores, err := Open(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(stores.Close)
	require.NoError(t, stores.Ping(ctx))

	u, err := stores.Users.Create(ctx, &user.User{Username: "ana", Email: "ana@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	created, err := stores.Tasks.Create(ctx, &task.Task{Title: "wired"})
	require.NoError(t, err)

	assigned, err := stores.Tasks.Assign(ctx, created.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, *assigned.UserID)

	_, err = stores.Activity.Append(ctx, "task.assigned", "test", "task", created.ID, nil)
	require.NoError(t, err)
	require.NoError(t, stores.Activity.VerifyChain(ctx))

	_, err = stores.Tasks.Assign(ctx, created.ID, u.ID+99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOpenGormRejectsPgx(t *testing.T) {
	_, err := OpenGorm(config.DriverPgx, "postgres://localhost/x", nil)
	assert.Error(t, err)
}
