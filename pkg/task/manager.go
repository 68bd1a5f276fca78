package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	maxTitleLen       = 100
	maxDescriptionLen = 200
)

// Activity event types emitted by the Manager.
const (
	EventCreated      = "task.created"
	EventTransitioned = "task.transitioned"
	EventAssigned     = "task.assigned"
	EventDeleted      = "task.deleted"
)

// Recorder receives a notice of every committed task mutation.
type Recorder interface {
	Record(ctx context.Context, eventType string, entityID int64, content map[string]any)
}

// Invalidator is told whenever task data changes, so derived views can be dropped.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, int64, map[string]any) {}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context) {}

// Manager validates task requests and drives the store. Both the lifecycle and
// the assignment rules run through here.
type Manager struct {
	store Store
	rec   Recorder
	cache Invalidator
	log   *zap.Logger
}

// NewManager creates a Manager. rec and cache may be nil.
func NewManager(store Store, rec Recorder, cache Invalidator, log *zap.Logger) *Manager {
	if rec == nil {
		rec = nopRecorder{}
	}
	if cache == nil {
		cache = nopInvalidator{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, rec: rec, cache: cache, log: log.Named("task")}
}

// Create validates and stores a new OPEN task.
func (m *Manager) Create(ctx context.Context, title, description string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidTask, maxTitleLen)
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidTask, maxDescriptionLen)
	}

	t, err := m.store.Create(ctx, &Task{Title: title, Description: description, Status: StatusOpen})
	if err != nil {
		return nil, err
	}
	m.log.Info("task created", zap.Int64("task_id", t.ID))
	m.rec.Record(ctx, EventCreated, t.ID, map[string]any{"title": t.Title})
	m.cache.Invalidate(ctx)
	return t, nil
}

// Get returns a live task.
func (m *Manager) Get(ctx context.Context, id int64) (*Task, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: task %d", ErrInvalidID, id)
	}
	return m.store.Get(ctx, id)
}

// List returns live tasks matching q.
func (m *Manager) List(ctx context.Context, q Query) ([]Task, error) {
	return m.store.List(ctx, q)
}

// Transition moves a task to the status with the given code, applying the
// time-tracking rule. A missing task is reported before an invalid code.
func (m *Manager) Transition(ctx context.Context, id int64, code int) (*Task, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: task %d", ErrInvalidID, id)
	}
	to, err := ParseStatus(code)
	if err != nil {
		if _, getErr := m.store.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, err
	}

	t, err := m.store.Transition(ctx, id, to)
	if err != nil {
		if !errors.Is(err, ErrNoOpTransition) {
			m.log.Warn("transition failed", zap.Int64("task_id", id), zap.Stringer("to", to), zap.Error(err))
		}
		return nil, err
	}
	m.log.Info("task transitioned",
		zap.Int64("task_id", id),
		zap.Stringer("status", t.Status),
		zap.Float64("time_spent", t.TimeSpent))
	m.rec.Record(ctx, EventTransitioned, id, map[string]any{
		"status":     t.Status.String(),
		"time_spent": t.TimeSpent,
	})
	m.cache.Invalidate(ctx)
	return t, nil
}

// Assign links a task to a user. Both must be live.
func (m *Manager) Assign(ctx context.Context, taskID, userID int64) (*Task, error) {
	if taskID < 0 {
		return nil, fmt.Errorf("%w: task %d", ErrInvalidID, taskID)
	}
	if userID < 0 {
		return nil, fmt.Errorf("%w: user %d", ErrInvalidID, userID)
	}
	t, err := m.store.Assign(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}
	m.log.Info("task assigned", zap.Int64("task_id", taskID), zap.Int64("user_id", userID))
	m.rec.Record(ctx, EventAssigned, taskID, map[string]any{"user_id": userID})
	m.cache.Invalidate(ctx)
	return t, nil
}

// Delete soft-deletes a task and returns it as marked.
func (m *Manager) Delete(ctx context.Context, id int64) (*Task, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: task %d", ErrInvalidID, id)
	}
	t, err := m.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	m.log.Info("task deleted", zap.Int64("task_id", id))
	m.rec.Record(ctx, EventDeleted, id, nil)
	m.cache.Invalidate(ctx)
	return t, nil
}

// Counts returns live task totals per status.
func (m *Manager) Counts(ctx context.Context) (Counts, error) {
	return m.store.Counts(ctx)
}

// TimeTracked exposes the store's report source.
func (m *Manager) TimeTracked(ctx context.Context) ([]Tracked, error) {
	return m.store.TimeTracked(ctx)
}
