package domain

import "errors"

// Sentinel errors shared across services and repositories.
var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the acting user lacks the required
	// capability or group membership.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidInput is returned when the request is structurally valid
	// but semantically wrong (e.g. archive boundary before start time).
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTimezone is returned when a supplied zone name is not a
	// recognized IANA timezone identifier.
	ErrInvalidTimezone = errors.New("invalid timezone")
	// ErrSlugExists is returned by repositories when an insert or update
	// hits the unique constraint on a slug column. Slug assignment treats
	// it as a retry signal, never as a caller-visible failure.
	ErrSlugExists = errors.New("slug already exists")
	// ErrUserNotFound is returned when a user lookup by email or id fails.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when creating a user with an email
	// already in use.
	ErrDuplicateEmail = errors.New("email already in use")
)
