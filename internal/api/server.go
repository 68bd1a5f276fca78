package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"task-tracker/pkg/activity"
	"task-tracker/pkg/report"
	"task-tracker/pkg/storage"
	"task-tracker/pkg/task"
	"task-tracker/pkg/user"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Params holds the dependencies of the API server.
type Params struct {
	fx.In

	Tasks    *task.Manager
	Users    *user.Service
	Reports  *report.Service
	Activity *activity.Bus
	DB       Pinger `optional:"true"`
	Logger   *zap.Logger
}

// Server is the HTTP API server.
type Server struct {
	tasks    *task.Manager
	users    *user.Service
	reports  *report.Service
	activity *activity.Bus
	db       Pinger
	log      *zap.Logger
	mux      *http.ServeMux
	handler  http.Handler
}

// New creates a new Server.
func New(p Params) *Server {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		tasks:    p.Tasks,
		users:    p.Users,
		reports:  p.Reports,
		activity: p.Activity,
		db:       p.DB,
		log:      log.Named("api"),
		mux:      http.NewServeMux(),
	}
	s.routes()
	s.handler = s.requestLog(s.mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Tasks
	s.mux.HandleFunc("GET /tasks", s.handleTaskList)
	s.mux.HandleFunc("POST /tasks", s.handleTaskCreate)
	s.mux.HandleFunc("PATCH /tasks", s.handleTaskStatus)
	s.mux.HandleFunc("GET /tasks/{id}", s.handleTaskGet)
	s.mux.HandleFunc("DELETE /tasks/{id}", s.handleTaskDelete)
	s.mux.HandleFunc("PATCH /tasks/{id}", s.handleTaskAssign)

	// Reports
	s.mux.HandleFunc("GET /reports/tasks/time_spent", s.handleTimeSpentReport)

	// Users
	s.mux.HandleFunc("GET /users", s.handleUserList)
	s.mux.HandleFunc("POST /users", s.handleUserCreate)
	s.mux.HandleFunc("POST /users/authenticate", s.handleUserAuthenticate)
	s.mux.HandleFunc("GET /users/{id}", s.handleUserGet)
	s.mux.HandleFunc("DELETE /users/{id}", s.handleUserDelete)

	// Activity
	s.mux.HandleFunc("GET /activity", s.handleActivityList)
	s.mux.HandleFunc("GET /activity/verify", s.handleActivityVerify)
	s.mux.HandleFunc("GET /activity/stream", s.handleActivityStream)

	// System
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /status", s.handleStatus)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := s.tasks.Counts(ctx)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	users, err := s.users.List(ctx)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	events, err := s.activity.Count(ctx)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	status := map[string]any{
		"tasks":           counts.Total,
		"open_tasks":      counts.Open,
		"pending_tasks":   counts.Pending,
		"completed_tasks": counts.Completed,
		"users":           len(users),
		"events":          events,
	}
	if stats, ok := s.reports.CacheStats(); ok {
		status["report_cache"] = stats
	}
	writeJSON(w, http.StatusOK, status)
}

var errBadRequest = errors.New("bad request")

// statusFor maps an error class onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConstraint):
		return http.StatusConflict
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, errBadRequest),
		errors.Is(err, task.ErrInvalidID),
		errors.Is(err, task.ErrInvalidStatus),
		errors.Is(err, task.ErrInvalidOrder),
		errors.Is(err, task.ErrInvalidTask),
		errors.Is(err, task.ErrNoOpTransition),
		errors.Is(err, user.ErrInvalidUser),
		errors.Is(err, report.ErrInvalidFormat):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeErr writes err with the status of its class. Server-side failures are
// logged and answered with a generic message.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write json", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not an integer", errBadRequest, raw)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter. ok is false when the
// parameter is absent.
func queryInt(r *http.Request, key string) (n int, ok bool, err error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}
	return n, true, nil
}
