package budget

import (
	"errors"
	"fmt"
)

var (
	// ErrLastBuyer is returned when removing the only remaining buyer.
	// The user-facing message is the "warning.lastBuyer" string.
	ErrLastBuyer = errors.New("cannot remove the last buyer")
	// ErrCategoryInUse is returned when removing a category that expenses
	// still reference.
	ErrCategoryInUse = errors.New("category is referenced by expenses")
	// ErrStaleSession means the identity changed while the call was in
	// flight; its result was discarded.
	ErrStaleSession = errors.New("session changed during operation")
)

// RemoteError wraps a failed Remote Data Store call. The snapshot is left
// unchanged when one is returned.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// WarningKey maps domain rejections to their translation key.
func WarningKey(err error) string {
	switch {
	case errors.Is(err, ErrLastBuyer):
		return "warning.lastBuyer"
	case errors.Is(err, ErrCategoryInUse):
		return "warning.categoryInUse"
	default:
		return ""
	}
}
