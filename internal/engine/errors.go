package engine

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or invalid mandatory field. Never
// retried; surfaced straight to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a reference to a record that does not exist.
// Operations with an established boolean-success convention (acknowledge,
// handle, delete) return false instead of this error.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// PermissionError reports that the actor is not the resource's creator.
type PermissionError struct {
	Resource string
	ID       string
	UserID   string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s is not the creator of %s %s", e.UserID, e.Resource, e.ID)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
