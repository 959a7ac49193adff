// Package apperr defines the error kinds shared by the client stores.
//
// Errors are wrapped with %w so callers can test the kind with errors.Is
// while still reading the underlying message.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is a transport or backend failure.
	ErrNetwork = errors.New("network error")
	// ErrValidation is a client-detected precondition failure. No request was sent.
	ErrValidation = errors.New("validation error")
	// ErrAuth means the credential was rejected or the caller lacks permission.
	ErrAuth = errors.New("auth error")
	// ErrSessionExpired means a persisted credential was stale or invalid.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotFound means the requested entity is not in the local cache.
	ErrNotFound = errors.New("not found")
)

// Validation returns an ErrValidation error with the given message.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Network wraps err as an ErrNetwork error.
func Network(err error) error {
	if errors.Is(err, ErrNetwork) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// Auth wraps err as an ErrAuth error.
func Auth(err error) error {
	if errors.Is(err, ErrAuth) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAuth, err)
}

// Message returns the human-readable part of err, without the kind prefix.
// Stores use it to fill their error slot.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var m interface{ UserMessage() string }
	if errors.As(err, &m) {
		return m.UserMessage()
	}
	return err.Error()
}
