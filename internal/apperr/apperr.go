// Package apperr defines the engine's error taxonomy. Every failure a
// caller can act on is one of these codes; anything else is an internal
// error and surfaces as such.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeSessionNotFound      Code = "SESSION_NOT_FOUND"
	CodeCardNotFound         Code = "CARD_NOT_FOUND"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeAlreadyInProgress    Code = "ALREADY_IN_PROGRESS"
	CodeAlreadyCompleted     Code = "ALREADY_COMPLETED"
	CodeAlreadyAnswered      Code = "ALREADY_ANSWERED"
	CodeNoQuestionsAvailable Code = "NO_QUESTIONS_AVAILABLE"
	CodeNotCompleted         Code = "NOT_COMPLETED"
	CodeInvalidRequest       Code = "INVALID_REQUEST"
)

type Error struct {
	Code    Code
	Message string
	// Meta carries code-specific data, e.g. the resumable session id on
	// ALREADY_IN_PROGRESS.
	Meta map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithMeta returns a copy of e carrying the given key/value.
func (e *Error) WithMeta(key, value string) *Error {
	meta := make(map[string]string, len(e.Meta)+1)
	for k, v := range e.Meta {
		meta[k] = v
	}
	meta[key] = value
	return &Error{Code: e.Code, Message: e.Message, Meta: meta}
}

// CodeOf extracts the taxonomy code from err, or "" if err is not an
// engine error.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func Is(err error, code Code) bool { return CodeOf(err) == code }
