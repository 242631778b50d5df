package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload is matched by every *ValidationError.
var ErrInvalidPayload = errors.New("invalid payload")

// ValidationError describes why a payload failed to parse.
type ValidationError struct {
	Collection string
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Collection, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Collection, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidPayload
}

func invalid(collection, field, reason string) *ValidationError {
	return &ValidationError{Collection: collection, Field: field, Reason: reason}
}
