package arbor

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a strict single-record lookup finds
	// no matching entity. It is distinct from an empty result set.
	ErrNotFound = errors.New("arbor: entity not found")

	// ErrMissingRelation is returned when a requested relation name has
	// no registered definition. This is a configuration error; it is
	// never retried.
	ErrMissingRelation = errors.New("arbor: relation not defined")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("arbor: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("arbor: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Label returns the entity label.
func (e *NotFoundError) Label() string {
	return e.label
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was
// searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// MissingRelationError is returned when an eager-load path or a lazy
// relation access names a relation the entity's definition does not
// declare. It names both the missing relation and the entity type.
type MissingRelationError struct {
	Entity   string
	Relation string
}

// Error returns the error string.
func (e *MissingRelationError) Error() string {
	return fmt.Sprintf("arbor: relation %q is not defined on %s", e.Relation, e.Entity)
}

// Is reports whether the target error matches MissingRelationError.
func (e *MissingRelationError) Is(err error) bool {
	return err == ErrMissingRelation
}

// NewMissingRelationError returns a new MissingRelationError.
func NewMissingRelationError(entity, relation string) *MissingRelationError {
	return &MissingRelationError{Entity: entity, Relation: relation}
}

// IsMissingRelation returns true if the error is a MissingRelationError.
func IsMissingRelation(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingRelationError
	return errors.As(err, &e) || errors.Is(err, ErrMissingRelation)
}

// NotLoadedError represents an error when accessing a relation that was
// neither eager-loaded nor lazily resolved.
type NotLoadedError struct {
	relation string
}

// Error returns the error string.
func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("arbor: relation %q was not loaded", e.relation)
}

// NewNotLoadedError returns a new NotLoadedError for the given relation name.
func NewNotLoadedError(relation string) *NotLoadedError {
	return &NotLoadedError{relation: relation}
}

// IsNotLoaded returns true if the error is a NotLoadedError.
func IsNotLoaded(err error) bool {
	if err == nil {
		return false
	}
	var e *NotLoadedError
	return errors.As(err, &e)
}

// QueryError wraps a query error with additional context. Engine
// failures are carried unmodified in Err; the wrapper adds only the
// entity and operation names.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "select", "count", "exist")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("arbor: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("arbor: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a mutation error with additional context.
type MutationError struct {
	Entity string // Entity type being mutated
	Op     string // Operation (e.g., "insert", "update", "delete")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("arbor: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}
