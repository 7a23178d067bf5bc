package task

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Taxonomy sentinels. Every classified failure matches exactly one of these via errors.Is.
var (
	// ErrNotFound indicates the referenced task or user does not exist.
	ErrNotFound = errors.New("resource not found")
	// ErrVersionConflict indicates the caller lost an optimistic-concurrency race.
	ErrVersionConflict = errors.New("version conflict")
	// ErrPolicyViolation indicates a disallowed status transition.
	ErrPolicyViolation = errors.New("status transition not allowed")
	// ErrIllegalOperation indicates a business rule blocked the operation.
	ErrIllegalOperation = errors.New("illegal operation")
	// ErrBadInput indicates field-shape validation failed.
	ErrBadInput = errors.New("validation failed")
)

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a version mismatch on a conditional write.
// Actual is -1 when the mismatch was only detected at commit time.
type ConflictError struct {
	TaskID   string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("task %s was updated by another user (expected version %d): refresh and try again", e.TaskID, e.Expected)
}

func (e *ConflictError) Is(target error) bool { return target == ErrVersionConflict }

// TransitionError names both endpoints of a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrPolicyViolation }

// IllegalOperationError carries an explanatory message for a blocked operation.
type IllegalOperationError struct {
	Reason string
}

func (e *IllegalOperationError) Error() string { return e.Reason }

func (e *IllegalOperationError) Is(target error) bool { return target == ErrIllegalOperation }

// ValidationError is a per-field map of shape violations.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrBadInput }

// Add records a violation for field, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// OrNil returns e when it holds violations and nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Kind classifies err into a taxonomy code, or "" when it is unclassified.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, ErrPolicyViolation):
		return "policy_violation"
	case errors.Is(err, ErrIllegalOperation):
		return "illegal_operation"
	case errors.Is(err, ErrBadInput):
		return "bad_input"
	}
	return ""
}

// IsClassified reports whether err belongs to the domain taxonomy.
func IsClassified(err error) bool {
	return Kind(err) != ""
}
