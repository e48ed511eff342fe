package domain

import (
	"errors"
	"fmt"
)

// ErrEmailTaken is returned when a user is created or renamed onto an email
// that another user already holds (compared case-insensitively).
var ErrEmailTaken = errors.New("email already registered")

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     int64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}
