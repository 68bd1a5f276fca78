package activity

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Recorder appends mutation notices to a Store. Failures are logged and never
// returned: the mutation they describe has already committed.
type Recorder struct {
	store Store
	log   *zap.Logger
}

// NewRecorder creates a Recorder appending to store.
func NewRecorder(store Store, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: store, log: log.Named("activity")}
}

// Record appends an event of eventType about entityID. The entity kind is the
// event type's prefix ("task.created" → "task").
func (r *Recorder) Record(ctx context.Context, eventType string, entityID int64, content map[string]any) {
	entity, _, _ := strings.Cut(eventType, ".")
	// The request may be cancelled as soon as its response is written.
	ctx = context.WithoutCancel(ctx)
	if _, err := r.store.Append(ctx, eventType, SourceFrom(ctx), entity, entityID, content); err != nil {
		r.log.Error("record activity",
			zap.String("type", eventType),
			zap.Int64("entity_id", entityID),
			zap.Error(err))
	}
}
