package common

import (
	"errors"
	"fmt"
)

// ErrTransient and ErrPermanent classify adapter failures. A transient failure
// may succeed if the caller tries again later; a permanent one will not.
var (
	ErrTransient = errors.New("transient error")
	ErrPermanent = errors.New("permanent error")
)

// WrapTransient annotates an error so callers can detect transient failures.
// The original error stays reachable through errors.Is and errors.As.
func WrapTransient(err error) error {
	if err == nil {
		return ErrTransient
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// WrapPermanent annotates an error as permanent.
func WrapPermanent(err error) error {
	if err == nil {
		return ErrPermanent
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsTransient reports whether err was classified as transient.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
