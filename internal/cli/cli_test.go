package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"task-tracker/internal/app"
	"task-tracker/internal/config"
	"task-tracker/pkg/activity"
	"task-tracker/pkg/storage"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	cfg := &config.Config{
		DatabaseDriver: config.DriverSQLite,
		DatabaseURL:    filepath.Join(t.TempDir(), "tasks.db"),
		ReportCacheTTL: time.Minute,
		BcryptCost:     4,
	}
	c := New(func(ctx context.Context) (*app.App, error) {
		return app.New(ctx, cfg, zap.NewNop())
	})
	t.Cleanup(c.Close)
	return c
}

func run(t *testing.T, c *CLI, args ...string) (string, error) {
	t.Helper()
	cmd := c.Command()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func runJSON[T any](t *testing.T, c *CLI, args ...string) T {
	t.Helper()
	out, err := run(t, c, args...)
	require.NoError(t, err, out)
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

type taskOut struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	Status    string  `json:"status"`
	TimeSpent float64 `json:"time_spent"`
	UserID    *int64  `json:"user_id"`
}

func TestCommandTree(t *testing.T) {
	root := New(nil).Command()
	for _, path := range [][]string{
		{"task", "create"}, {"task", "list"}, {"task", "get"}, {"task", "status"}, {"task", "assign"}, {"task", "delete"},
		{"user", "create"}, {"user", "list"}, {"user", "get"}, {"user", "delete"},
		{"report"}, {"activity", "list"}, {"activity", "verify"}, {"status"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestHelpDoesNotOpenStorage(t *testing.T) {
	c := New(func(context.Context) (*app.App, error) {
		t.Fatal("storage opened for help")
		return nil, nil
	})
	_, err := run(t, c, "task", "--help")
	assert.NoError(t, err)
}

func TestOpenFailureIsReported(t *testing.T) {
	c := New(func(context.Context) (*app.App, error) { return nil, errors.New("no database") })
	_, err := run(t, c, "status")
	assert.ErrorContains(t, err, "no database")
}

func TestTaskCommands(t *testing.T) {
	c := newTestCLI(t)

	created := runJSON[taskOut](t, c, "task", "create", "--title", "cli task", "--description", "from tt")
	assert.Equal(t, "OPEN", created.Status)
	id := jsonID(created.ID)

	moved := runJSON[taskOut](t, c, "task", "status", id, "2")
	assert.Equal(t, "PENDING", moved.Status)

	_, err := run(t, c, "task", "status", id, "2")
	assert.Error(t, err)

	_, err = run(t, c, "task", "status", id, "9")
	assert.Error(t, err)

	user := runJSON[struct {
		ID int64 `json:"id"`
	}](t, c, "user", "create", "--username", "kai", "--email", "kai@example.com", "--password", "s3cret")
	assigned := runJSON[taskOut](t, c, "task", "assign", id, jsonID(user.ID))
	require.NotNil(t, assigned.UserID)
	assert.Equal(t, user.ID, *assigned.UserID)

	list := runJSON[[]taskOut](t, c, "task", "list", "--status", "2")
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	out, err := run(t, c, "task", "list", "--format", "short")
	require.NoError(t, err)
	assert.Contains(t, out, "PENDING")
	assert.Contains(t, out, "cli task")

	_, err = run(t, c, "task", "list", "--order", "5")
	assert.Error(t, err)

	runJSON[taskOut](t, c, "task", "delete", id)
	_, err = run(t, c, "task", "get", id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReportCommand(t *testing.T) {
	c := newTestCLI(t)
	dir := t.TempDir()

	out, err := run(t, c, "report")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	_, err = run(t, c, "report", "--format", "chart", "-o", filepath.Join(dir, "empty.png"))
	assert.ErrorContains(t, err, "no tracked time")

	_, err = run(t, c, "report", "--format", "xml")
	assert.Error(t, err)

	pdf := filepath.Join(dir, "report.pdf")
	out, err = run(t, c, "report", "--format", "pdf", "-o", pdf)
	require.NoError(t, err)
	assert.Contains(t, out, pdf)
	body, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
}

func TestActivityAndStatusCommands(t *testing.T) {
	c := newTestCLI(t)
	created := runJSON[taskOut](t, c, "task", "create", "--title", "audited")
	runJSON[taskOut](t, c, "task", "status", jsonID(created.ID), "3")

	events := runJSON[[]activity.Event](t, c, "activity", "list", "--task", jsonID(created.ID))
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, "cli", e.Source)
	}

	out, err := run(t, c, "activity", "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "2 events")

	out, err = run(t, c, "activity", "list", "--format", "short")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	status := runJSON[map[string]any](t, c, "status")
	assert.EqualValues(t, 1, status["tasks"])
	assert.EqualValues(t, 1, status["completed_tasks"])
	assert.EqualValues(t, 2, status["events"])
}

func jsonID(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
