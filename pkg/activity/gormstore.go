package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-tracker/pkg/storage"
)

// eventRow is the gorm model of the activity table. Content is kept as the
// exact JSON text that was hashed.
type eventRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Type      string    `gorm:"size:64;not null;index"`
	Timestamp time.Time `gorm:"not null;index:idx_activity_timestamp_id,priority:1"`
	Source    string    `gorm:"size:64;not null"`
	Entity    string    `gorm:"size:16;not null;index:idx_activity_entity,priority:1"`
	EntityID  int64     `gorm:"not null;index:idx_activity_entity,priority:2"`
	Content   string    `gorm:"type:text;not null"`
	Hash      string    `gorm:"size:64;not null"`
	PrevHash  string    `gorm:"size:64;not null"`
}

func (eventRow) TableName() string { return "activity" }

func (r eventRow) toEvent() (Event, error) {
	e := Event{
		ID:        r.ID,
		Type:      r.Type,
		Timestamp: r.Timestamp.UTC(),
		Source:    r.Source,
		Entity:    r.Entity,
		EntityID:  r.EntityID,
		Hash:      r.Hash,
		PrevHash:  r.PrevHash,
	}
	if err := json.Unmarshal([]byte(r.Content), &e.Content); err != nil {
		return e, fmt.Errorf("unmarshal content: %w", err)
	}
	return e, nil
}

// GormStore is a gorm-backed Store with hash-chained integrity.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// EnsureTable migrates the activity table.
func (s *GormStore) EnsureTable(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&eventRow{})
}

// Append creates and stores a new event, computing the hash chain.
func (s *GormStore) Append(ctx context.Context, eventType, source, entity string, entityID int64, content map[string]any) (*Event, error) {
	content, contentJSON, err := marshalContent(content)
	if err != nil {
		return nil, err
	}
	e := &Event{
		Type:     eventType,
		Source:   source,
		Entity:   entity,
		EntityID: entityID,
		Content:  content,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockChain(tx); err != nil {
			return err
		}
		var prev eventRow
		err := tx.Model(&eventRow{}).Order("timestamp DESC, id DESC").Limit(1).Take(&prev).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return storage.ClassifyGorm(err)
		}
		stamp(e, prev.Timestamp)
		seal(e, prev.Hash, contentJSON)

		return storage.ClassifyGorm(tx.Create(&eventRow{
			ID:        e.ID,
			Type:      e.Type,
			Timestamp: e.Timestamp,
			Source:    e.Source,
			Entity:    e.Entity,
			EntityID:  e.EntityID,
			Content:   string(contentJSON),
			Hash:      e.Hash,
			PrevHash:  e.PrevHash,
		}).Error)
	})
	if err != nil {
		return nil, fmt.Errorf("append event: %w", storage.Settle(err))
	}
	return e, nil
}

// lockChain serialises appends for the rest of tx. sqlite runs on a single
// connection, so its transactions are serial already.
func lockChain(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return storage.ClassifyGorm(tx.Exec("SELECT pg_advisory_xact_lock(?)", chainLockKey).Error)
}

// Get retrieves a single event by ID.
func (s *GormStore) Get(ctx context.Context, id string) (*Event, error) {
	var row eventRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, storage.ClassifyGorm(err))
	}
	e, err := row.toEvent()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Recent returns the most recent events in reverse chronological order.
func (s *GormStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	return s.find(s.db.WithContext(ctx).Order("timestamp DESC, id DESC").Limit(limit))
}

// ByType returns the most recent events of one type.
func (s *GormStore) ByType(ctx context.Context, eventType string, limit int) ([]Event, error) {
	return s.find(s.db.WithContext(ctx).Where("type = ?", eventType).Order("timestamp DESC, id DESC").Limit(limit))
}

// ForEntity returns the most recent events about one task or user.
func (s *GormStore) ForEntity(ctx context.Context, entity string, entityID int64, limit int) ([]Event, error) {
	return s.find(s.db.WithContext(ctx).
		Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("timestamp DESC, id DESC").Limit(limit))
}

// Since returns events created after the given ID, for polling/SSE.
func (s *GormStore) Since(ctx context.Context, afterID string, limit int) ([]Event, error) {
	var anchor eventRow
	if err := s.db.WithContext(ctx).Where("id = ?", afterID).Take(&anchor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []Event{}, nil
		}
		return nil, storage.ClassifyGorm(err)
	}
	return s.find(s.db.WithContext(ctx).
		Where("timestamp > ? OR (timestamp = ? AND id > ?)", anchor.Timestamp, anchor.Timestamp, anchor.ID).
		Order("timestamp ASC, id ASC").Limit(limit))
}

// Count returns the total number of events.
func (s *GormStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&eventRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count events: %w", storage.ClassifyGorm(err))
	}
	return int(n), nil
}

// VerifyChain walks the entire chain chronologically and verifies hash integrity.
func (s *GormStore) VerifyChain(ctx context.Context) error {
	rows, err := s.db.WithContext(ctx).Model(&eventRow{}).Order("timestamp ASC, id ASC").Rows()
	if err != nil {
		return fmt.Errorf("verify chain query: %w", storage.ClassifyGorm(err))
	}
	defer rows.Close()

	var v chainVerifier
	for rows.Next() {
		var row eventRow
		if err := s.db.ScanRows(rows, &row); err != nil {
			return fmt.Errorf("verify chain scan row %d: %w", v.n, err)
		}
		e, err := row.toEvent()
		if err != nil {
			e.Content = map[string]any{"_raw": row.Content}
		}
		if err := v.check(&e, []byte(row.Content)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("verify chain rows: %w", err)
	}
	return nil
}

func (s *GormStore) find(q *gorm.DB) ([]Event, error) {
	var rows []eventRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, storage.ClassifyGorm(err)
	}
	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}
