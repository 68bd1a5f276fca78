package user

import "errors"

var (
	// ErrInvalidUser is returned when a username, email, password or id fails validation.
	ErrInvalidUser = errors.New("invalid user")

	// ErrInvalidCredentials is returned when a username and password do not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
)
