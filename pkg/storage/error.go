package storage

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the backing medium cannot be reached.
// Operations that hit it abort with nothing partially committed.
var ErrUnavailable = errors.New("store unavailable")

// ErrNotFound is returned when a long-term entry doesn't exist in the store.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "entry not found"
	}

	return "entry not found: " + e.ID
}

// Unavailable wraps err as an ErrUnavailable failure, preserving the cause.
func Unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
