package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task-tracker/pkg/activity"
	"task-tracker/pkg/report"
	"task-tracker/pkg/task"
	"task-tracker/pkg/user"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type testEnv struct {
	srv   *Server
	clock *testClock
	bus   *activity.Bus
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	ctx := context.Background()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	users := user.NewGormStore(db, user.WithClock(clock.Now))
	tasks := task.NewGormStore(db, task.WithClock(clock.Now))
	events := activity.NewGormStore(db)
	require.NoError(t, users.EnsureTable(ctx))
	require.NoError(t, tasks.EnsureTable(ctx))
	require.NoError(t, events.EnsureTable(ctx))

	log := zap.NewNop()
	bus := activity.NewBus(events)
	rec := activity.NewRecorder(bus, log)
	reports := report.NewService(tasks, nil, log)

	srv := New(Params{
		Tasks:    task.NewManager(tasks, rec, reports, log),
		Users:    user.NewService(users, user.NewPasswordHasher(bcrypt.MinCost), rec, log),
		Reports:  reports,
		Activity: bus,
		DB:       PingFunc(sqlDB.PingContext),
		Logger:   log,
	})
	return &testEnv{srv: srv, clock: clock, bus: bus}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type taskJSON struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Status        string     `json:"status"`
	TimeSpent     float64    `json:"time_spent"`
	DateStartedAt *time.Time `json:"date_started_at"`
	DateDeleted   *time.Time `json:"date_deleted"`
	UserID        *int64     `json:"user_id"`
}

func (e *testEnv) createTask(t *testing.T, title string) taskJSON {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/tasks", map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[taskJSON](t, rec)
}

func (e *testEnv) createUser(t *testing.T, name string) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/users", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct {
		ID int64 `json:"id"`
	}](t, rec).ID
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTask(t, "write docs")
	assert.Equal(t, "OPEN", created.Status)

	rec := env.do(t, http.MethodPatch, "/tasks", map[string]any{"task_id": created.ID, "new_status": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	started := decode[taskJSON](t, rec)
	assert.Equal(t, "PENDING", started.Status)
	require.NotNil(t, started.DateStartedAt)

	env.clock.now = env.clock.now.Add(90 * time.Minute)
	rec = env.do(t, http.MethodPatch, "/tasks", map[string]any{"task_id": created.ID, "new_status": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[taskJSON](t, rec)
	assert.Equal(t, "COMPLETED", done.Status)
	assert.Equal(t, 5400.0, done.TimeSpent)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/tasks/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5400.0, decode[taskJSON](t, rec).TimeSpent)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/tasks/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[taskJSON](t, rec).DateDeleted)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/tasks/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	created := env.createTask(t, "mapped")
	env.createUser(t, "taken")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"missing task", http.MethodGet, "/tasks/999", nil, http.StatusNotFound},
		{"non-numeric id", http.MethodGet, "/tasks/abc", nil, http.StatusBadRequest},
		{"blank title", http.MethodPost, "/tasks", map[string]string{"title": " "}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/tasks", "not an object", http.StatusBadRequest},
		{"invalid status code", http.MethodPatch, "/tasks", map[string]any{"task_id": created.ID, "new_status": 7}, http.StatusBadRequest},
		{"missing task beats invalid code", http.MethodPatch, "/tasks", map[string]any{"task_id": 999, "new_status": 7}, http.StatusNotFound},
		{"negative task id", http.MethodPatch, "/tasks", map[string]any{"task_id": -1, "new_status": 2}, http.StatusBadRequest},
		{"no-op transition", http.MethodPatch, "/tasks", map[string]any{"task_id": created.ID, "new_status": 1}, http.StatusBadRequest},
		{"missing fields", http.MethodPatch, "/tasks", map[string]any{"task_id": created.ID}, http.StatusBadRequest},
		{"assign missing user", http.MethodPatch, fmt.Sprintf("/tasks/%d", created.ID), map[string]any{"user_id": 999}, http.StatusNotFound},
		{"assign negative user", http.MethodPatch, fmt.Sprintf("/tasks/%d", created.ID), map[string]any{"user_id": -5}, http.StatusBadRequest},
		{"bad status filter", http.MethodGet, "/tasks?status=9", nil, http.StatusBadRequest},
		{"bad order", http.MethodGet, "/tasks?order=3", nil, http.StatusBadRequest},
		{"bad report format", http.MethodGet, "/reports/tasks/time_spent?report_format=4", nil, http.StatusBadRequest},
		{"missing report format", http.MethodGet, "/reports/tasks/time_spent", nil, http.StatusBadRequest},
		{"duplicate user", http.MethodPost, "/users", map[string]string{"username": "taken", "email": "other@example.com", "password": "pw123456"}, http.StatusConflict},
		{"invalid email", http.MethodPost, "/users", map[string]string{"username": "fresh", "email": "nope", "password": "pw123456"}, http.StatusBadRequest},
		{"wrong password", http.MethodPost, "/users/authenticate", map[string]string{"username": "taken", "password": "wrong"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	env := newTestEnv(t)
	b := env.createTask(t, "bravo")
	a := env.createTask(t, "alpha")
	rec := env.do(t, http.MethodPatch, "/tasks", map[string]any{"task_id": a.ID, "new_status": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/tasks?sort_by=title&order=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]taskJSON](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{a.ID, b.ID}, []int64{got[0].ID, got[1].ID})

	rec = env.do(t, http.MethodGet, "/tasks?status=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[[]taskJSON](t, rec)
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].ID)
}

func TestUsersIncludeTheirTasks(t *testing.T) {
	env := newTestEnv(t)
	uid := env.createUser(t, "maria")
	owned := env.createTask(t, "owned")
	env.createTask(t, "unowned")

	rec := env.do(t, http.MethodPatch, fmt.Sprintf("/tasks/%d", owned.ID), map[string]any{"user_id": uid})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uid, *decode[taskJSON](t, rec).UserID)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", uid), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	view := decode[struct {
		Username string     `json:"username"`
		Tasks    []taskJSON `json:"tasks"`
	}](t, rec)
	assert.Equal(t, "maria", view.Username)
	require.Len(t, view.Tasks, 1)
	assert.Equal(t, owned.ID, view.Tasks[0].ID)

	rec = env.do(t, http.MethodPost, "/users/authenticate", map[string]string{"username": "maria", "password": "hunter22"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d", uid), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", uid), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestTimeSpentReport(t *testing.T) {
	env := newTestEnv(t)

	t.Run("chart without data", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/reports/tasks/time_spent?report_format=2", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "There was an error generating the report.", decode[map[string]string](t, rec)["error"])
	})

	t.Run("json without data", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/reports/tasks/time_spent?report_format=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	created := env.createTask(t, "measured")
	env.do(t, http.MethodPatch, "/tasks", map[string]any{"task_id": created.ID, "new_status": 2})
	env.clock.now = env.clock.now.Add(3725 * time.Second)
	env.do(t, http.MethodPatch, "/tasks", map[string]any{"task_id": created.ID, "new_status": 3})

	t.Run("json", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/reports/tasks/time_spent?report_format=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		rows := decode[[]map[string]any](t, rec)
		require.Len(t, rows, 1)
		assert.Equal(t, "1h 02m 05s", rows[0]["time_spent"])
		assert.Equal(t, "3", rows[0]["status"])
		assert.Nil(t, rows[0]["username"])
	})

	t.Run("chart", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/reports/tasks/time_spent?report_format=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		_, err := png.Decode(rec.Body)
		assert.NoError(t, err)
	})

	t.Run("pdf", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/reports/tasks/time_spent?report_format=pdf", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
	})
}

func TestActivityAndStatus(t *testing.T) {
	env := newTestEnv(t)
	first := env.createTask(t, "one")
	env.createTask(t, "two")

	req := httptest.NewRequest(http.MethodPatch, "/tasks", strings.NewReader(fmt.Sprintf(`{"task_id":%d,"new_status":2}`, first.ID)))
	req.Header.Set(SourceHeader, "ui")
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/activity?task_id=%d", first.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]activity.Event](t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, task.EventTransitioned, events[0].Type)
	assert.Equal(t, "ui", events[0].Source)
	assert.Equal(t, "api", events[1].Source)

	rec = env.do(t, http.MethodGet, "/activity/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["valid"])

	rec = env.do(t, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, status["tasks"])
	assert.EqualValues(t, 1, status["pending_tasks"])
	assert.EqualValues(t, 3, status["events"])
	assert.NotContains(t, status, "report_cache")

	rec = env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActivityStreamReplaysAndFollows(t *testing.T) {
	env := newTestEnv(t)
	env.createTask(t, "before")

	rec := env.do(t, http.MethodGet, "/activity?limit=1", nil)
	anchor := decode[[]activity.Event](t, rec)[0]
	env.createTask(t, "replayed")

	ts := httptest.NewServer(env.srv)
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/activity/stream?after="+anchor.ID, nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
				lines <- data
			}
		}
	}()

	next := func() activity.Event {
		select {
		case data, ok := <-lines:
			require.True(t, ok, "stream closed")
			var e activity.Event
			require.NoError(t, json.Unmarshal([]byte(data), &e))
			return e
		case <-ctx.Done():
			t.Fatal("timed out waiting for event")
		}
		return activity.Event{}
	}

	replayed := next()
	assert.Equal(t, "replayed", replayed.Content["title"])

	live := env.createTask(t, "live")
	followed := next()
	assert.Equal(t, live.ID, followed.EntityID)
}
