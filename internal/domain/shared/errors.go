// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrOutOfOrder      = errors.New("operation out of order")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "achievement", "learningpath"
	Op      string // Operation that failed, e.g., "AddXP", "CompleteModule"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Progress domain errors
var (
	ErrInvalidXPAmount  = NewDomainError("progress", "Validate", ErrInvalidInput, "xp amount must be a positive integer")
	ErrInvalidUserID    = NewDomainError("progress", "Validate", ErrInvalidID, "invalid user id")
	ErrLevelRegression  = NewDomainError("progress", "SetLevel", ErrInvalidState, "level must never decrease")
	ErrNegativeCounter  = NewDomainError("progress", "Validate", ErrNegativeValue, "counters must be non-negative")
	ErrProgressNotFound = NewDomainError("progress", "Find", ErrNotFound, "user progress not found")
)

// Achievement domain errors
var (
	ErrAchievementNotFound = NewDomainError("achievement", "Find", ErrNotFound, "achievement not found")
	ErrAlreadyEarned       = NewDomainError("achievement", "Grant", ErrAlreadyExists, "achievement already earned")
	ErrInvalidCriteria     = NewDomainError("achievement", "Validate", ErrInvalidInput, "invalid achievement criteria")
)

// Learning path domain errors
var (
	ErrPathNotFound        = NewDomainError("learningpath", "Find", ErrNotFound, "learning path not found")
	ErrModuleLocked        = NewDomainError("learningpath", "OpenLesson", ErrForbidden, "module is locked")
	ErrModuleOutOfOrder    = NewDomainError("learningpath", "CompleteModule", ErrOutOfOrder, "module completion must be strictly sequential")
	ErrPathAlreadyComplete = NewDomainError("learningpath", "CompleteModule", ErrInvalidState, "learning path is already completed")
	ErrNotPathOwner        = NewDomainError("learningpath", "Authorize", ErrForbidden, "learning path belongs to another user")
	ErrStaleFrontier       = NewDomainError("learningpath", "Save", ErrOptimisticLock, "completed modules counter changed concurrently")
)

// Settings domain errors
var (
	ErrSettingsNotFound = NewDomainError("settings", "Find", ErrNotFound, "user settings not found")
	ErrInvalidQuietHour = NewDomainError("settings", "Validate", ErrValueOutOfRange, "quiet hours must be within 0-23")
)
