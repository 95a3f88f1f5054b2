package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
// Cross-company access is always reported as ErrNotFound, never as a
// permission failure, so existence is not leaked across tenants.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates a concurrent modification was detected at commit
// time. Callers may retry the whole operation.
var ErrConflict = errors.New("conflicting concurrent modification")

// ErrUnbalanced indicates a journal entry whose debit lines do not sum to
// its credit lines. Blocks submit and post.
var ErrUnbalanced = errors.New("journal entry debits do not equal credits")

// ErrInvalidTransition indicates the entity's current status does not permit
// the requested operation.
var ErrInvalidTransition = errors.New("status does not permit this transition")

// ErrDuplicateReversal indicates the journal entry has already been reversed.
var ErrDuplicateReversal = errors.New("journal entry already reversed")

// ErrOverAllocation indicates a requested amount exceeds the invoice balance
// or the payment's unallocated remainder.
var ErrOverAllocation = errors.New("amount exceeds available balance")

// ErrInvalidWeights indicates a percentage-based allocation whose weights are
// malformed (non-positive, or summing to more than 1).
var ErrInvalidWeights = errors.New("allocation weights are invalid")

// ErrScheduleNotDue indicates generation was attempted before the template's
// next generation date without force.
var ErrScheduleNotDue = errors.New("template schedule is not due")

// AppError carries an HTTP-ish status code alongside the wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError wrapping the given cause.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewNotFoundError creates an AppError that matches ErrNotFound via errors.Is.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: 404, Message: message, Err: ErrNotFound}
}
