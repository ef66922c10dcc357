package archive

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes container format and build failures.
type ErrorCode string

const (
	// ErrCodeNotAContainer indicates the bytes are not a ZIP container.
	ErrCodeNotAContainer ErrorCode = "NOT_A_CONTAINER"

	// ErrCodeMissingManifest indicates the required manifest entry is absent.
	ErrCodeMissingManifest ErrorCode = "MISSING_MANIFEST"

	// ErrCodeCorruptEntry indicates an entry cannot be located or read.
	ErrCodeCorruptEntry ErrorCode = "CORRUPT_ENTRY"

	// ErrCodePayloadCompressed indicates the payload entry was written
	// compressed, which violates the zero-copy contract.
	ErrCodePayloadCompressed ErrorCode = "PAYLOAD_COMPRESSED"

	// ErrCodeSerialization indicates an entry could not be serialized.
	ErrCodeSerialization ErrorCode = "SERIALIZATION_ERROR"

	// ErrCodeIO indicates a filesystem read/write failure.
	ErrCodeIO ErrorCode = "IO_ERROR"
)

// Error is a container format or build failure. Format errors are fatal:
// the archive is unusable.
type Error struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Entry names the offending entry, when one is known.
	Entry string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("%s: %s (entry=%s)", e.Code, e.Message, e.Entry)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HasCode returns true if err is an archive Error with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code ErrorCode) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

func newError(code ErrorCode, entry, message string) *Error {
	return &Error{Code: code, Entry: entry, Message: message}
}

func wrapError(code ErrorCode, entry, message string, err error) *Error {
	return &Error{Code: code, Entry: entry, Message: message, Err: err}
}
