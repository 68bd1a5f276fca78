package task

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"task-tracker/pkg/storage"
)

const taskColumns = `id, title, description, status, time_spent, date_started_at, date_created, date_modified, date_deleted, user_id`

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool, opts ...Option) *PgStore {
	o := buildOptions(opts)
	return &PgStore{pool: pool, now: o.now}
}

// EnsureTable creates the tasks table if it doesn't exist. The users table
// must already exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id              BIGSERIAL PRIMARY KEY,
			title           VARCHAR(100) NOT NULL,
			description     VARCHAR(200) NOT NULL DEFAULT '',
			status          INTEGER NOT NULL DEFAULT 1 CHECK (status IN (1, 2, 3)),
			time_spent      DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (time_spent >= 0),
			date_started_at TIMESTAMPTZ,
			date_created    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			date_modified   TIMESTAMPTZ,
			date_deleted    TIMESTAMPTZ,
			user_id         BIGINT REFERENCES users(id)
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status) WHERE date_deleted IS NULL`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id) WHERE user_id IS NOT NULL`)
	return err
}

// Create inserts a new open task.
func (s *PgStore) Create(ctx context.Context, t *Task) (*Task, error) {
	if t.Status == 0 {
		t.Status = StatusOpen
	}
	t.DateCreated = s.now().UTC().Truncate(time.Microsecond)

	out, err := scanTask(s.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, time_spent, date_created)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING `+taskColumns,
		t.Title, t.Description, t.Status, t.DateCreated))
	if err != nil {
		return nil, fmt.Errorf("create task: %w", storage.ClassifyPg(err))
	}
	return out, nil
}

// Get retrieves a live task by ID.
func (s *PgStore) Get(ctx context.Context, id int64) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND date_deleted IS NULL`, id))
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, storage.ClassifyPg(err))
	}
	return t, nil
}

// List returns live tasks filtered and ordered by q.
func (s *PgStore) List(ctx context.Context, q Query) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE date_deleted IS NULL`
	var args []any
	if q.Status != nil {
		args = append(args, *q.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if q.UserID != nil {
		args = append(args, *q.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	query += " ORDER BY " + q.orderClause()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", storage.ClassifyPg(err))
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", storage.ClassifyPg(err))
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", storage.ClassifyPg(err))
	}
	return tasks, nil
}

// Transition moves a task to a new status inside one transaction.
func (s *PgStore) Transition(ctx context.Context, id int64, to Status) (*Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("transition task %d: begin: %w", id, storage.ClassifyPg(err))
	}
	defer tx.Rollback(ctx)

	cur, err := lockTask(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("transition task %d: %w", id, err)
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	next, err := Transition(*cur, to, now)
	if err != nil {
		return nil, err
	}

	out, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks SET status = $2, time_spent = $3, date_started_at = $4, date_modified = $5
		WHERE id = $1
		RETURNING `+taskColumns,
		id, next.Status, next.TimeSpent, next.DateStartedAt, now))
	if err != nil {
		return nil, fmt.Errorf("transition task %d: %w", id, storage.ClassifyPg(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("transition task %d: commit: %w", id, storage.ClassifyPg(err))
	}
	return out, nil
}

// Assign links a task to a live user inside one transaction.
func (s *PgStore) Assign(ctx context.Context, taskID, userID int64) (*Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("assign task %d: begin: %w", taskID, storage.ClassifyPg(err))
	}
	defer tx.Rollback(ctx)

	if _, err := lockTask(ctx, tx, taskID); err != nil {
		return nil, fmt.Errorf("assign task %d: %w", taskID, err)
	}

	// FOR SHARE keeps the user from being soft-deleted until we commit.
	var one int
	err = tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, userID).Scan(&one)
	if err != nil {
		return nil, fmt.Errorf("assign task %d: user %d: %w", taskID, userID, storage.ClassifyPg(err))
	}

	now := s.now().UTC().Truncate(time.Microsecond)
	out, err := scanTask(tx.QueryRow(ctx, `
		UPDATE tasks SET user_id = $2, date_modified = $3
		WHERE id = $1
		RETURNING `+taskColumns,
		taskID, userID, now))
	if err != nil {
		return nil, fmt.Errorf("assign task %d: %w", taskID, storage.ClassifyPg(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("assign task %d: commit: %w", taskID, storage.ClassifyPg(err))
	}
	return out, nil
}

// Delete soft-deletes a live task.
func (s *PgStore) Delete(ctx context.Context, id int64) (*Task, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE tasks SET date_deleted = $2
		WHERE id = $1 AND date_deleted IS NULL
		RETURNING `+taskColumns, id, now))
	if err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, storage.ClassifyPg(err))
	}
	return t, nil
}

// TimeTracked returns live tasks with recorded time, joined with the owner's
// username. Owners are looked up regardless of their own soft-delete state.
func (s *PgStore) TimeTracked(ctx context.Context) ([]Tracked, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.title, t.description, t.status, t.time_spent, t.date_started_at,
		       t.date_created, t.date_modified, t.date_deleted, t.user_id, u.username
		FROM tasks t
		LEFT JOIN users u ON u.id = t.user_id
		WHERE t.date_deleted IS NULL AND t.time_spent > 0
		ORDER BY t.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("time tracked tasks: %w", storage.ClassifyPg(err))
	}
	defer rows.Close()

	tracked := []Tracked{}
	for rows.Next() {
		var tr Tracked
		t := &tr.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.TimeSpent, &t.DateStartedAt,
			&t.DateCreated, &t.DateModified, &t.DateDeleted, &t.UserID, &tr.Username); err != nil {
			return nil, fmt.Errorf("time tracked tasks: %w", storage.ClassifyPg(err))
		}
		tracked = append(tracked, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("time tracked tasks: %w", storage.ClassifyPg(err))
	}
	return tracked, nil
}

// Counts returns live task totals per status.
func (s *PgStore) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 1),
		       COUNT(*) FILTER (WHERE status = 2),
		       COUNT(*) FILTER (WHERE status = 3)
		FROM tasks WHERE date_deleted IS NULL`).
		Scan(&c.Total, &c.Open, &c.Pending, &c.Completed)
	if err != nil {
		return Counts{}, fmt.Errorf("count tasks: %w", storage.ClassifyPg(err))
	}
	return c, nil
}

// lockTask loads a live task and holds its row lock until tx ends.
func lockTask(ctx context.Context, tx pgx.Tx, id int64) (*Task, error) {
	t, err := scanTask(tx.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND date_deleted IS NULL FOR UPDATE`, id))
	if err != nil {
		return nil, storage.ClassifyPg(err)
	}
	return t, nil
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.TimeSpent, &t.DateStartedAt,
		&t.DateCreated, &t.DateModified, &t.DateDeleted, &t.UserID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
