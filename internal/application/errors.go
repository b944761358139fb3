package application

import "errors"

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	// ErrStore wraps infrastructure failures on the persistence path.
	ErrStore = errors.New("user store failure")
)
