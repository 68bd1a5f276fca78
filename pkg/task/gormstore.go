package task

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-tracker/pkg/storage"
)

// taskRow is the gorm model of the tasks table.
type taskRow struct {
	ID            int64   `gorm:"primaryKey"`
	Title         string  `gorm:"size:100;not null"`
	Description   string  `gorm:"size:200;not null"`
	Status        int     `gorm:"not null;index"`
	TimeSpent     float64 `gorm:"not null"`
	DateStartedAt *time.Time
	DateCreated   time.Time `gorm:"not null"`
	DateModified  *time.Time
	DateDeleted   storage.Presence `gorm:"index"`
	UserID        *int64           `gorm:"index"`
	Owner         *ownerRow        `gorm:"foreignKey:UserID"`
}

func (taskRow) TableName() string { return "tasks" }

// ownerRow exists so the migrator emits the tasks.user_id foreign key. Its
// column tags must stay identical to the users table model.
type ownerRow struct {
	ID int64 `gorm:"primaryKey"`
}

func (ownerRow) TableName() string { return "users" }

func (r taskRow) toTask() Task {
	return Task{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Status:        Status(r.Status),
		TimeSpent:     r.TimeSpent,
		DateStartedAt: utcPtr(r.DateStartedAt),
		DateCreated:   r.DateCreated.UTC(),
		DateModified:  utcPtr(r.DateModified),
		DateDeleted:   r.DateDeleted,
		UserID:        r.UserID,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// GormStore is a gorm-backed task store. It runs on sqlite for local use and
// tests, and on Postgres through gorm's postgres driver.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a GormStore. db should be opened with TranslateError
// so constraint failures classify as storage.ErrConstraint.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	o := buildOptions(opts)
	return &GormStore{db: db, now: o.now}
}

// EnsureTable migrates the tasks table. The users table must be migrated first.
func (s *GormStore) EnsureTable(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&taskRow{})
}

// Create inserts a new open task.
func (s *GormStore) Create(ctx context.Context, t *Task) (*Task, error) {
	row := taskRow{
		Title:       t.Title,
		Description: t.Description,
		Status:      int(StatusOpen),
		DateCreated: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Omit("Owner").Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create task: %w", storage.ClassifyGorm(err))
	}
	out := row.toTask()
	return &out, nil
}

// Get retrieves a live task by ID.
func (s *GormStore) Get(ctx context.Context, id int64) (*Task, error) {
	var row taskRow
	err := s.db.WithContext(ctx).Where("id = ? AND date_deleted IS NULL", id).First(&row).Error
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, storage.ClassifyGorm(err))
	}
	t := row.toTask()
	return &t, nil
}

// List returns live tasks filtered and ordered by q.
func (s *GormStore) List(ctx context.Context, q Query) ([]Task, error) {
	db := s.db.WithContext(ctx).Where("date_deleted IS NULL")
	if q.Status != nil {
		db = db.Where("status = ?", int(*q.Status))
	}
	if q.UserID != nil {
		db = db.Where("user_id = ?", *q.UserID)
	}

	var rows []taskRow
	if err := db.Order(q.orderClause()).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", storage.ClassifyGorm(err))
	}
	tasks := make([]Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.toTask())
	}
	return tasks, nil
}

// Transition moves a task to a new status inside one transaction.
func (s *GormStore) Transition(ctx context.Context, id int64, to Status) (*Task, error) {
	var out Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.lockTask(tx, id)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		next, err := Transition(cur.toTask(), to, now)
		if err != nil {
			return err
		}

		err = tx.Model(&taskRow{}).Where("id = ?", id).Updates(map[string]any{
			"status":          int(next.Status),
			"time_spent":      next.TimeSpent,
			"date_started_at": next.DateStartedAt,
			"date_modified":   now,
		}).Error
		if err != nil {
			return storage.ClassifyGorm(err)
		}
		next.DateModified = &now
		out = next
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transition task %d: %w", id, storage.Settle(err, ErrNoOpTransition, ErrInvalidStatus))
	}
	return &out, nil
}

// Assign links a task to a live user inside one transaction.
func (s *GormStore) Assign(ctx context.Context, taskID, userID int64) (*Task, error) {
	var out Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.lockTask(tx, taskID)
		if err != nil {
			return err
		}

		owner := tx.Table("users").Where("id = ? AND deleted_at IS NULL", userID)
		if s.isPostgres() {
			owner = owner.Clauses(clause.Locking{Strength: "SHARE"})
		}
		var found []int64
		if err := owner.Pluck("id", &found).Error; err != nil {
			return storage.ClassifyGorm(err)
		}
		if len(found) == 0 {
			return fmt.Errorf("user %d: %w", userID, storage.ErrNotFound)
		}

		now := s.now().UTC()
		err = tx.Model(&taskRow{}).Where("id = ?", taskID).Updates(map[string]any{
			"user_id":       userID,
			"date_modified": now,
		}).Error
		if err != nil {
			return storage.ClassifyGorm(err)
		}
		out = cur.toTask()
		out.UserID = &userID
		out.DateModified = &now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assign task %d: %w", taskID, storage.Settle(err))
	}
	return &out, nil
}

// Delete soft-deletes a live task.
func (s *GormStore) Delete(ctx context.Context, id int64) (*Task, error) {
	var out Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := s.lockTask(tx, id)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		marker := storage.Deleted(now)
		err = tx.Model(&taskRow{}).Where("id = ?", id).Update("date_deleted", marker).Error
		if err != nil {
			return storage.ClassifyGorm(err)
		}
		out = cur.toTask()
		out.DateDeleted = marker
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, storage.Settle(err))
	}
	return &out, nil
}

// trackedRow is the scan target of the report join.
type trackedRow struct {
	ID            int64
	Title         string
	Description   string
	Status        int
	TimeSpent     float64
	DateStartedAt *time.Time
	DateCreated   time.Time
	DateModified  *time.Time
	DateDeleted   storage.Presence
	UserID        *int64
	Username      *string
}

func (r trackedRow) toTracked() Tracked {
	t := taskRow{
		ID: r.ID, Title: r.Title, Description: r.Description, Status: r.Status,
		TimeSpent: r.TimeSpent, DateStartedAt: r.DateStartedAt, DateCreated: r.DateCreated,
		DateModified: r.DateModified, DateDeleted: r.DateDeleted, UserID: r.UserID,
	}
	return Tracked{Task: t.toTask(), Username: r.Username}
}

// TimeTracked returns live tasks with recorded time, joined with the owner's
// username. Owners are looked up regardless of their own soft-delete state.
func (s *GormStore) TimeTracked(ctx context.Context) ([]Tracked, error) {
	var rows []trackedRow
	err := s.db.WithContext(ctx).
		Table("tasks AS t").
		Select("t.id, t.title, t.description, t.status, t.time_spent, t.date_started_at, " +
			"t.date_created, t.date_modified, t.date_deleted, t.user_id, u.username").
		Joins("LEFT JOIN users u ON u.id = t.user_id").
		Where("t.date_deleted IS NULL AND t.time_spent > 0").
		Order("t.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("time tracked tasks: %w", storage.ClassifyGorm(err))
	}
	tracked := make([]Tracked, 0, len(rows))
	for _, r := range rows {
		tracked = append(tracked, r.toTracked())
	}
	return tracked, nil
}

// Counts returns live task totals per status.
func (s *GormStore) Counts(ctx context.Context) (Counts, error) {
	var c struct {
		Total     int64
		Open      int64
		Pending   int64
		Completed int64
	}
	err := s.db.WithContext(ctx).Model(&taskRow{}).
		Select("COUNT(*) AS total, " +
			"COALESCE(SUM(CASE WHEN status = 1 THEN 1 ELSE 0 END), 0) AS open, " +
			"COALESCE(SUM(CASE WHEN status = 2 THEN 1 ELSE 0 END), 0) AS pending, " +
			"COALESCE(SUM(CASE WHEN status = 3 THEN 1 ELSE 0 END), 0) AS completed").
		Where("date_deleted IS NULL").
		Scan(&c).Error
	if err != nil {
		return Counts{}, fmt.Errorf("count tasks: %w", storage.ClassifyGorm(err))
	}
	return Counts{Total: int(c.Total), Open: int(c.Open), Pending: int(c.Pending), Completed: int(c.Completed)}, nil
}

// lockTask loads a live task inside tx. On Postgres the row stays locked
// until tx ends; sqlite serialises writers on its own.
func (s *GormStore) lockTask(tx *gorm.DB, id int64) (*taskRow, error) {
	q := tx.Where("id = ? AND date_deleted IS NULL", id)
	if s.isPostgres() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row taskRow
	if err := q.First(&row).Error; err != nil {
		return nil, storage.ClassifyGorm(err)
	}
	return &row, nil
}

func (s *GormStore) isPostgres() bool {
	return s.db.Dialector.Name() == "postgres"
}
