package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a group or product id has no row behind it.
	ErrNotFound = errors.New("resource not found")

	// ErrConflict is returned when a unique name is already taken by another row.
	ErrConflict = errors.New("resource already exists")

	// ErrInsufficientStock is returned when a sale would drive quantity below zero.
	ErrInsufficientStock = errors.New("not enough stock")

	// ErrStockOverflow is returned when a delivery would push quantity past the int64 range.
	ErrStockOverflow = errors.New("stock quantity out of range")

	// ErrInvalidInput is returned for payloads that pass decoding but break a business rule.
	ErrInvalidInput = errors.New("invalid input")
)

// Error carries a user-facing message while still matching one of the sentinels above
// through errors.Is.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
