package task

import "errors"

// Sentinel errors for task operations. Store failures use the classes in
// package storage.
var (
	// ErrInvalidStatus is returned for a status code outside 1..3.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidOrder is returned for a sort order code outside 1..2.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInvalidID is returned for a negative task or user id.
	ErrInvalidID = errors.New("invalid id")

	// ErrInvalidTask is returned when a title or description fails validation.
	ErrInvalidTask = errors.New("invalid task")

	// ErrNoOpTransition is returned when the requested status equals the current one.
	ErrNoOpTransition = errors.New("task already has the requested status")
)
