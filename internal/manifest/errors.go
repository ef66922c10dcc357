package manifest

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes manifest failures.
type ErrorCode string

const (
	// ErrCodeMalformed indicates the bytes are not valid UTF-8 TOML.
	ErrCodeMalformed ErrorCode = "MALFORMED"

	// ErrCodeSchemaViolation indicates the TOML decoded but a field is
	// missing, mistyped, or violates a cross-field rule.
	ErrCodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"
)

// Error is a manifest parse or validation failure.
//
// Manifest errors are fatal for the archive that carries the manifest but
// never abort the host process.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Field is the dotted path of the offending field (schema violations).
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsMalformed returns true if the error is a malformed-text error.
// Uses errors.As to handle wrapped errors.
func IsMalformed(err error) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == ErrCodeMalformed
	}
	return false
}

// IsSchemaViolation returns true if the error is a schema violation.
// Uses errors.As to handle wrapped errors.
func IsSchemaViolation(err error) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == ErrCodeSchemaViolation
	}
	return false
}

// newMalformed creates a Malformed error.
func newMalformed(message string) *Error {
	return &Error{Code: ErrCodeMalformed, Message: message}
}

// newSchemaViolation creates a SchemaViolation error for a field path.
func newSchemaViolation(field, message string) *Error {
	return &Error{Code: ErrCodeSchemaViolation, Field: field, Message: message}
}
