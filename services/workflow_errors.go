package services

import (
	"errors"
	"fmt"
	"strings"

	"journal-workflow-api/models"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
	ErrInvalidTransition   = errors.New("invalid transition")
	ErrUnauthorized        = errors.New("forbidden")
	ErrDuplicateAssignment = errors.New("duplicate assignment")
	ErrIncompleteReview    = errors.New("incomplete review")

	// ErrStaleAggregate is returned by a Repository when the stored version moved on.
	ErrStaleAggregate = errors.New("manuscript was modified concurrently")
)

// WorkflowError is the typed failure returned by every engine operation.
type WorkflowError struct {
	Kind          error                   `json:"-"`
	Message       string                  `json:"message"`
	CurrentStatus models.ManuscriptStatus `json:"current_status,omitempty"`
	ReviewerID    string                  `json:"reviewer_id,omitempty"`
	Outstanding   []string                `json:"outstanding_assignments,omitempty"`
}

func (e *WorkflowError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

func (e *WorkflowError) Unwrap() error { return e.Kind }

// AsWorkflowError extracts a *WorkflowError from err.
func AsWorkflowError(err error) (*WorkflowError, bool) {
	var werr *WorkflowError
	if errors.As(err, &werr) {
		return werr, true
	}
	return nil, false
}

func validationError(format string, args ...interface{}) error {
	return &WorkflowError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(entity, id string) error {
	return &WorkflowError{Kind: ErrNotFound, Message: fmt.Sprintf("%s %s not found", entity, id)}
}

func unauthorizedError(reason string) error {
	return &WorkflowError{Kind: ErrUnauthorized, Message: reason}
}

// errForbidden is the only refusal given once a record is involved, so an
// unknown id and someone else's record look the same to the caller.
func errForbidden() error {
	return unauthorizedError("forbidden")
}

func invalidTransitionError(current models.ManuscriptStatus, format string, args ...interface{}) error {
	return &WorkflowError{
		Kind:          ErrInvalidTransition,
		Message:       fmt.Sprintf(format, args...),
		CurrentStatus: current,
	}
}

func duplicateAssignmentError(reviewerID, existingID string) error {
	return &WorkflowError{
		Kind:        ErrDuplicateAssignment,
		Message:     fmt.Sprintf("reviewer %s already holds active assignment %s", reviewerID, existingID),
		ReviewerID:  reviewerID,
		Outstanding: []string{existingID},
	}
}

func incompleteReviewError(outstanding []string) error {
	msg := "no completed review in the current round"
	if len(outstanding) > 0 {
		msg = "assignments still open: " + strings.Join(outstanding, ", ")
	}
	return &WorkflowError{
		Kind:          ErrIncompleteReview,
		Message:       msg,
		CurrentStatus: models.StatusUnderReview,
		Outstanding:   outstanding,
	}
}
