package user

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"task-tracker/pkg/storage"
)

// userRow is the gorm model of the users table. The id column must keep the
// same tags as the task store's owner reference.
type userRow struct {
	ID           int64            `gorm:"primaryKey"`
	Username     string           `gorm:"size:20;not null;uniqueIndex:idx_users_username_live,where:deleted_at IS NULL"`
	Email        string           `gorm:"size:50;not null;uniqueIndex:idx_users_email_live,where:deleted_at IS NULL"`
	PasswordHash string           `gorm:"size:255;not null"`
	CreatedAt    time.Time        `gorm:"not null"`
	UpdatedAt    time.Time        `gorm:"not null"`
	DeletedAt    storage.Presence `gorm:"index"`
}

func (userRow) TableName() string { return "users" }

func (r userRow) toUser() User {
	return User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		DeletedAt:    r.DeletedAt,
	}
}

// GormStore is a gorm-backed user store.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	o := buildOptions(opts)
	return &GormStore{db: db, now: o.now}
}

// EnsureTable migrates the users table.
func (s *GormStore) EnsureTable(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&userRow{})
}

// Create inserts a user after checking no live user holds the username or email.
func (s *GormStore) Create(ctx context.Context, u *User) (*User, error) {
	now := s.now().UTC()
	row := userRow{
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		err := tx.Model(&userRow{}).
			Where("(username = ? OR email = ?) AND deleted_at IS NULL", u.Username, u.Email).
			Count(&taken).Error
		if err != nil {
			return storage.ClassifyGorm(err)
		}
		if taken > 0 {
			return fmt.Errorf("%w: username or email already registered", storage.ErrConstraint)
		}
		return storage.ClassifyGorm(tx.Create(&row).Error)
	})
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", u.Username, storage.Settle(err))
	}
	out := row.toUser()
	return &out, nil
}

// Get returns a live user by ID.
func (s *GormStore) Get(ctx context.Context, id int64) (*User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ? AND deleted_at IS NULL", id).First(&row).Error; err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, storage.ClassifyGorm(err))
	}
	u := row.toUser()
	return &u, nil
}

// ByUsername returns a live user by username.
func (s *GormStore) ByUsername(ctx context.Context, username string) (*User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("username = ? AND deleted_at IS NULL", username).First(&row).Error; err != nil {
		return nil, fmt.Errorf("user by name %s: %w", username, storage.ClassifyGorm(err))
	}
	u := row.toUser()
	return &u, nil
}

// List returns all live users.
func (s *GormStore) List(ctx context.Context) ([]User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Where("deleted_at IS NULL").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", storage.ClassifyGorm(err))
	}
	users := make([]User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

// Delete soft-deletes a live user.
func (s *GormStore) Delete(ctx context.Context, id int64) (*User, error) {
	var out User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userRow
		if err := tx.Where("id = ? AND deleted_at IS NULL", id).First(&row).Error; err != nil {
			return storage.ClassifyGorm(err)
		}
		now := s.now().UTC()
		marker := storage.Deleted(now)
		err := tx.Model(&userRow{}).Where("id = ?", id).Updates(map[string]any{
			"deleted_at": marker,
			"updated_at": now,
		}).Error
		if err != nil {
			return storage.ClassifyGorm(err)
		}
		out = row.toUser()
		out.DeletedAt = marker
		out.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete user %d: %w", id, storage.Settle(err))
	}
	return &out, nil
}
