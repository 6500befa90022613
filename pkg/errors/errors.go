// Package errors provides custom error types for the starsolve system.
// These errors enable programmatic error checking and consistent user-facing
// diagnostics across the CLI commands.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the starsolve system
var (
	// ErrNotFound indicates that a required file or resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoSolution indicates that the solver could not match an image
	// against the pattern database
	ErrNoSolution = errors.New("no solution")
)

// NotFoundError represents a missing file or resource. Hint, when set, is
// appended to the message to tell the user where to obtain the file.
type NotFoundError struct {
	Resource string
	Path     string
	Hint     string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s not found", e.Resource)
	if e.Path != "" {
		msg = fmt.Sprintf("%s not found at %s", e.Resource, e.Path)
	}
	if e.Hint != "" {
		msg += "\n" + e.Hint
	}
	return msg
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, path, hint string) *NotFoundError {
	return &NotFoundError{Resource: resource, Path: path, Hint: hint}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "hip_main", "bsc5", "yaml", "npz", etc.
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{Format: format, File: file, Message: message, Err: err}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// SolveError represents a per-image solve failure. The solve command records
// these in the results log and continues with the next image.
type SolveError struct {
	Image string
	Err   error
}

// Error implements the error interface
func (e *SolveError) Error() string {
	return fmt.Sprintf("solve failed for %s: %v", e.Image, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SolveError) Unwrap() error {
	return e.Err
}

// NewSolveError creates a new SolveError
func NewSolveError(image string, err error) *SolveError {
	return &SolveError{Image: image, Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNoSolution checks if an error indicates an unsolvable image
func IsNoSolution(err error) bool {
	return errors.Is(err, ErrNoSolution)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
