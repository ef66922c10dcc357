package vfs

import (
	"errors"
	"fmt"
)

// ErrorCode classifies mount failures.
type ErrorCode string

const (
	ErrCodeReadOnly    ErrorCode = "READ_ONLY"
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"
	ErrCodeJunkName    ErrorCode = "JUNK_NAME"
	ErrCodeNotFound    ErrorCode = "NOT_FOUND"
)

// Error is a mount operation failure tied to an entry name.
type Error struct {
	Code ErrorCode
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vfs: %s: %s: %v", e.Code, e.Name, e.Err)
	}
	return fmt.Sprintf("vfs: %s: %s", e.Code, e.Name)
}

func (e *Error) Unwrap() error { return e.Err }

// HasCode reports whether err is a vfs Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var ve *Error
	if !errors.As(err, &ve) {
		return false
	}
	return ve.Code == code
}

func newError(code ErrorCode, name string) *Error {
	return &Error{Code: code, Name: name}
}
