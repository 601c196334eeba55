package session

import (
	"errors"
	"fmt"

	"tazzio/internal/core"
	"tazzio/internal/store"
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidCredentials
	KindNotAuthenticated
	KindEmailTaken
	KindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindEmailTaken:
		return "email_taken"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// AuthError is returned by every Manager operation that fails.
type AuthError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is lets errors.Is match the sentinels by kind whatever the cause.
func (e *AuthError) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.Kind == KindInvalidCredentials
	case ErrNotAuthenticated:
		return e.Kind == KindNotAuthenticated
	}
	return false
}

// wrap classifies a store error.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindUnknown
	switch {
	case errors.Is(err, store.ErrInvalidCredentials):
		kind = KindInvalidCredentials
	case errors.Is(err, store.ErrSessionExpired), errors.Is(err, ErrNotAuthenticated):
		kind = KindNotAuthenticated
	case errors.Is(err, store.ErrEmailTaken):
		kind = KindEmailTaken
	case errors.Is(err, core.ErrValidation), errors.Is(err, store.ErrInvalidToken):
		kind = KindValidation
	}
	return &AuthError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of an *AuthError in err's chain, KindUnknown otherwise.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}
