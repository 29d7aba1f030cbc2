package models

import (
	"errors"
	"fmt"
)

// ValidationError rejects a write before any statement executes
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError creates a ValidationError with a stable code
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// NotFoundError signals a missing article, category or tag reference
type NotFoundError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotFoundError creates a NotFoundError with a stable code
func NewNotFoundError(code, message string) *NotFoundError {
	return &NotFoundError{Code: code, Message: message}
}

// ConflictError signals a uniqueness clash (e.g. duplicate alias)
type ConflictError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConflictError creates a ConflictError with a stable code
func NewConflictError(code, message string) *ConflictError {
	return &ConflictError{Code: code, Message: message}
}

// IndexError marks a search-index failure. It is caught and logged at the
// synchronizer boundary and never rolls back a relational commit.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("search index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error {
	return e.Err
}

// NewIndexError wraps err as an index failure for the given operation
func NewIndexError(op string, err error) *IndexError {
	return &IndexError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsIndexError reports whether err is an IndexError
func IsIndexError(err error) bool {
	var ie *IndexError
	return errors.As(err, &ie)
}
