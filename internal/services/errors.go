package services

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// Error kinds. Handlers translate them to HTTP statuses with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// Error carries a user-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func BadRequest(message string) error {
	return &Error{Kind: ErrBadRequest, Message: message}
}

func Unauthorized(message string) error {
	return &Error{Kind: ErrUnauthorized, Message: message}
}

func Conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

// notFoundIfMissing maps pgx.ErrNoRows to a NotFound error and passes
// anything else through.
func notFoundIfMissing(err error, message string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFound(message)
	}
	return err
}

func slotUnavailable() error {
	return BadRequest("Selected time slot is not available")
}
