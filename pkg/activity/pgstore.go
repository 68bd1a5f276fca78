package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"task-tracker/pkg/storage"
)

const eventColumns = `id, type, timestamp, source, entity, entity_id, content, hash, prev_hash`

// chainLockKey is the transaction-scoped advisory lock every append takes
// before reading the chain head. A row lock would not cover an empty table.
const chainLockKey int64 = 0x7461736b6c6f67

// PgStore is a PostgreSQL-backed Store with hash-chained integrity.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the activity table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS activity (
			id        TEXT PRIMARY KEY,
			type      TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			source    TEXT NOT NULL,
			entity    TEXT NOT NULL,
			entity_id BIGINT NOT NULL,
			content   JSONB NOT NULL DEFAULT '{}',
			hash      TEXT NOT NULL,
			prev_hash TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_activity_type ON activity(type)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_activity_entity ON activity(entity, entity_id)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_activity_timestamp_id ON activity(timestamp, id)`)
	return err
}

// Append creates and stores a new event, computing the hash chain.
func (s *PgStore) Append(ctx context.Context, eventType, source, entity string, entityID int64, content map[string]any) (*Event, error) {
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", storage.ClassifyPg(err))
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, chainLockKey); err != nil {
		return nil, fmt.Errorf("lock chain: %w", storage.ClassifyPg(err))
	}

	var prevHash string
	var prevAt time.Time
	err = tx.QueryRow(ctx, `SELECT hash, timestamp FROM activity ORDER BY timestamp DESC, id DESC LIMIT 1`).Scan(&prevHash, &prevAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("read chain head: %w", storage.ClassifyPg(err))
	}
	stamp(e, prevAt)
	seal(e, prevHash, contentJSON)

	_, err = tx.Exec(ctx, `
		INSERT INTO activity (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)`,
		e.ID, e.Type, e.Timestamp, e.Source, e.Entity, e.EntityID, string(contentJSON), e.Hash, e.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", storage.ClassifyPg(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit event: %w", storage.ClassifyPg(err))
	}
	return e, nil
}

// Get retrieves a single event by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Event, error) {
	var e Event
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM activity WHERE id = $1`, id).
		Scan(&e.ID, &e.Type, &e.Timestamp, &e.Source, &e.Entity, &e.EntityID, &raw, &e.Hash, &e.PrevHash)
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, storage.ClassifyPg(err))
	}
	if err := json.Unmarshal(raw, &e.Content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	return &e, nil
}

// Recent returns the most recent events in reverse chronological order.
func (s *PgStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	return s.scanMany(ctx, `
		SELECT `+eventColumns+` FROM activity ORDER BY timestamp DESC, id DESC LIMIT $1`, limit)
}

// ByType returns the most recent events of one type.
func (s *PgStore) ByType(ctx context.Context, eventType string, limit int) ([]Event, error) {
	return s.scanMany(ctx, `
		SELECT `+eventColumns+` FROM activity WHERE type = $1
		ORDER BY timestamp DESC, id DESC LIMIT $2`, eventType, limit)
}

// ForEntity returns the most recent events about one task or user.
func (s *PgStore) ForEntity(ctx context.Context, entity string, entityID int64, limit int) ([]Event, error) {
	return s.scanMany(ctx, `
		SELECT `+eventColumns+` FROM activity WHERE entity = $1 AND entity_id = $2
		ORDER BY timestamp DESC, id DESC LIMIT $3`, entity, entityID, limit)
}

// Since returns events created after the given ID, for polling/SSE.
func (s *PgStore) Since(ctx context.Context, afterID string, limit int) ([]Event, error) {
	return s.scanMany(ctx, `
		SELECT `+eventColumns+` FROM activity
		WHERE (timestamp, id) > (SELECT timestamp, id FROM activity WHERE id = $1)
		ORDER BY timestamp ASC, id ASC LIMIT $2`, afterID, limit)
}

// Count returns the total number of events.
func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activity`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", storage.ClassifyPg(err))
	}
	return n, nil
}

// VerifyChain walks the entire chain chronologically and verifies hash integrity.
func (s *PgStore) VerifyChain(ctx context.Context) error {
	rows, err := s.pool.Query(ctx, `SELECT `+eventColumns+` FROM activity ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("verify chain query: %w", storage.ClassifyPg(err))
	}
	defer rows.Close()

	var v chainVerifier
	for rows.Next() {
		var e Event
		var raw []byte
		if err := rows.Scan(&e.ID, &e.Type, &e.Timestamp, &e.Source, &e.Entity, &e.EntityID, &raw, &e.Hash, &e.PrevHash); err != nil {
			return fmt.Errorf("verify chain scan row %d: %w", v.n, err)
		}
		if err := json.Unmarshal(raw, &e.Content); err != nil {
			e.Content = map[string]any{"_raw": string(raw)}
		}
		if err := v.check(&e, raw); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("verify chain rows: %w", err)
	}
	return nil
}

func (s *PgStore) scanMany(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storage.ClassifyPg(err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var raw []byte
		if err := rows.Scan(&e.ID, &e.Type, &e.Timestamp, &e.Source, &e.Entity, &e.EntityID, &raw, &e.Hash, &e.PrevHash); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &e.Content); err != nil {
			return nil, fmt.Errorf("unmarshal content: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return events, nil
}
