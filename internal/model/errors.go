package model

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedElement          = errors.New("malformed element")
	ErrPageConfigNotFound        = errors.New("page not configured")
	ErrVersionNotFound           = errors.New("version not found")
	ErrStorageUnavailable        = errors.New("storage unavailable")
	ErrConcurrentVersionConflict = errors.New("concurrent version conflict")
	ErrInvalidArgument           = errors.New("invalid argument")
)

// MalformedElementError names the element and field that failed validation.
type MalformedElementError struct {
	ElementID string
	Field     string
	Reason    string
}

func (e *MalformedElementError) Error() string {
	return fmt.Sprintf("malformed element %q: %s: %s", e.ElementID, e.Field, e.Reason)
}

func (e *MalformedElementError) Is(target error) bool {
	return target == ErrMalformedElement
}
