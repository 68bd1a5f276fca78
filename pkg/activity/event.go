// Package activity keeps an append-only, hash-chained log of every committed
// mutation and fans new entries out to live subscribers.
package activity

import (
	"context"
	"time"
)

// Event is a single entry in the hash-chained activity log.
type Event struct {
	ID        string         `json:"id"`        // UUID v7 (time-ordered)
	Type      string         `json:"type"`      // e.g. "task.transitioned", "user.created"
	Timestamp time.Time      `json:"timestamp"` // when the mutation committed
	Source    string         `json:"source"`    // "api", "cli", ...
	Entity    string         `json:"entity"`    // "task" or "user"
	EntityID  int64          `json:"entity_id"`
	Content   map[string]any `json:"content"`
	Hash      string         `json:"hash"`      // SHA-256 of canonical form
	PrevHash  string         `json:"prev_hash"` // hash chain link
}

// Store is the contract for activity persistence.
type Store interface {
	Append(ctx context.Context, eventType, source, entity string, entityID int64, content map[string]any) (*Event, error)
	Get(ctx context.Context, id string) (*Event, error)
	Recent(ctx context.Context, limit int) ([]Event, error)
	ByType(ctx context.Context, eventType string, limit int) ([]Event, error)
	ForEntity(ctx context.Context, entity string, entityID int64, limit int) ([]Event, error)
	Since(ctx context.Context, afterID string, limit int) ([]Event, error)
	Count(ctx context.Context) (int, error)
	VerifyChain(ctx context.Context) error
	EnsureTable(ctx context.Context) error
}

type sourceKey struct{}

// WithSource tags ctx with the name of the surface issuing mutations.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFrom returns the source set by WithSource, or "system".
func SourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return "system"
}
