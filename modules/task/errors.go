package task

import (
	"errors"

	domain "github.com/example/kanban-tasks/domain/task"
)

// ServiceError carries a classified domain error across the request-reply boundary.
// Unclassified failures are never encoded this way; they travel as transport errors.
type ServiceError struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Resource string            `json:"resource,omitempty"`
	ID       string            `json:"id,omitempty"`
	From     string            `json:"from,omitempty"`
	To       string            `json:"to,omitempty"`
	Expected int64             `json:"expected,omitempty"`
	Actual   int64             `json:"actual,omitempty"`
}

// NewServiceError encodes err, or returns nil when err is not a classified domain error.
func NewServiceError(err error) *ServiceError {
	code := domain.Kind(err)
	if code == "" {
		return nil
	}
	se := &ServiceError{Code: code, Message: err.Error()}

	var (
		nf *domain.NotFoundError
		ce *domain.ConflictError
		te *domain.TransitionError
		ve *domain.ValidationError
	)
	switch {
	case errors.As(err, &nf):
		se.Resource, se.ID = nf.Resource, nf.ID
	case errors.As(err, &ce):
		se.ID, se.Expected, se.Actual = ce.TaskID, ce.Expected, ce.Actual
	case errors.As(err, &te):
		se.From, se.To = string(te.From), string(te.To)
	case errors.As(err, &ve):
		se.Fields = ve.Fields
	}
	return se
}

// Err rebuilds the typed domain error. A nil receiver yields nil.
func (e *ServiceError) Err() error {
	if e == nil {
		return nil
	}
	switch e.Code {
	case "not_found":
		return &domain.NotFoundError{Resource: e.Resource, ID: e.ID}
	case "version_conflict":
		return &domain.ConflictError{TaskID: e.ID, Expected: e.Expected, Actual: e.Actual}
	case "policy_violation":
		return &domain.TransitionError{From: domain.Status(e.From), To: domain.Status(e.To)}
	case "illegal_operation":
		return &domain.IllegalOperationError{Reason: e.Message}
	case "bad_input":
		return &domain.ValidationError{Fields: e.Fields}
	}
	return errors.New(e.Message)
}
