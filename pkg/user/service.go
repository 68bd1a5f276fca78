package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"task-tracker/pkg/storage"
)

const (
	maxUsernameLen = 20
	maxEmailLen    = 50
	maxPasswordLen = 72 // bcrypt input limit, in bytes
)

// Activity event types emitted by the Service.
const (
	EventCreated = "user.created"
	EventDeleted = "user.deleted"
)

// Recorder receives a notice of every committed user mutation.
type Recorder interface {
	Record(ctx context.Context, eventType string, entityID int64, content map[string]any)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, int64, map[string]any) {}

// Service validates user requests and drives the store.
type Service struct {
	store  Store
	hasher *PasswordHasher
	rec    Recorder
	log    *zap.Logger
}

// NewService creates a Service. rec may be nil.
func NewService(store Store, hasher *PasswordHasher, rec Recorder, log *zap.Logger) *Service {
	if hasher == nil {
		hasher = NewPasswordHasher(DefaultBcryptCost)
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, hasher: hasher, rec: rec, log: log.Named("user")}
}

// Register validates and stores a new user with a hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case username == "":
		return nil, fmt.Errorf("%w: username is required", ErrInvalidUser)
	case utf8.RuneCountInString(username) > maxUsernameLen:
		return nil, fmt.Errorf("%w: username exceeds %d characters", ErrInvalidUser, maxUsernameLen)
	case email == "":
		return nil, fmt.Errorf("%w: email is required", ErrInvalidUser)
	case utf8.RuneCountInString(email) > maxEmailLen:
		return nil, fmt.Errorf("%w: email exceeds %d characters", ErrInvalidUser, maxEmailLen)
	case password == "":
		return nil, fmt.Errorf("%w: password is required", ErrInvalidUser)
	case len(password) > maxPasswordLen:
		return nil, fmt.Errorf("%w: password exceeds %d bytes", ErrInvalidUser, maxPasswordLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: malformed email %q", ErrInvalidUser, email)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.Create(ctx, &User{Username: username, Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, storage.ErrConstraint) {
			s.log.Info("duplicate registration", zap.String("username", username))
		}
		return nil, err
	}
	s.log.Info("user created", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	s.rec.Record(ctx, EventCreated, u.ID, map[string]any{"username": u.Username})
	return u, nil
}

// Get returns a live user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidUser, id)
	}
	return s.store.Get(ctx, id)
}

// List returns live users.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.List(ctx)
}

// Delete soft-deletes a user. Tasks keep their user_id.
func (s *Service) Delete(ctx context.Context, id int64) (*User, error) {
	if id < 0 {
		return nil, fmt.Errorf("%w: id %d", ErrInvalidUser, id)
	}
	u, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("user deleted", zap.Int64("user_id", id))
	s.rec.Record(ctx, EventDeleted, id, nil)
	return u, nil
}

// Authenticate returns the live user whose credentials match.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.store.ByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
