// Package model holds the domain types and the state-transition rules that
// govern them. Repositories persist these types; handlers translate the
// sentinel errors defined here into HTTP responses. Keeping the taxonomy in
// one place lets every layer distinguish "does not exist" from "exists but
// not yours" from "exists but already finalized".
package model

import "errors"

// ErrNotFound is returned when the requested entity id does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the entity exists but the acting user is not
// permitted to view or mutate it. Handlers translate this into HTTP 403 and
// must never collapse it into ErrNotFound.
var ErrForbidden = errors.New("forbidden")

// ErrStateConflict is returned when a mutation targets an entity that is
// locked, completed or signed off, or when a transition is attempted out of
// order (e.g. TPD sign-off before ES sign-off). It also covers stale writers
// rejected by a guarded update.
var ErrStateConflict = errors.New("state conflict")

// ErrDuplicate is returned when an insert violates a uniqueness rule, such
// as a second active ES-EYD assignment for the same pair or a repeated
// (entity, EPA) mapping.
var ErrDuplicate = errors.New("duplicate")

// FieldError points a validation failure at a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError carries field-level validation failures. It is recovered
// at the request boundary and rendered as a 422 with the field list.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, fields ...FieldError) error {
	return &ValidationError{Err: err, Fields: fields}
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return "validation failed"
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }
