package user

import (
	"context"
	"time"

	"task-tracker/pkg/storage"
)

// User is a person tasks can be assigned to.
type User struct {
	ID           int64            `json:"id"`
	Username     string           `json:"username"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    storage.Presence `json:"-"`
}

// Store is the contract for user persistence. Soft-deleted users are
// invisible to every method.
type Store interface {
	// Create inserts a user. A live user with the same username or email
	// yields storage.ErrConstraint.
	Create(ctx context.Context, u *User) (*User, error)

	Get(ctx context.Context, id int64) (*User, error)

	// ByUsername returns the live user with the given username.
	ByUsername(ctx context.Context, username string) (*User, error)

	// List returns live users ordered by id.
	List(ctx context.Context) ([]User, error)

	// Delete soft-deletes the user and returns it as marked.
	Delete(ctx context.Context, id int64) (*User, error)

	EnsureTable(ctx context.Context) error
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now as the store's source of the current instant.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
