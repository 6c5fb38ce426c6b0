// Package apperr defines the error taxonomy shared by the pipeline stages and
// the HTTP surface. Every failure that reaches a caller carries a Kind so the
// client can tell which stage failed and whether re-authentication is needed.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a machine-readable failure category.
type Kind string

// Pipeline and storage kinds.
const (
	UploadFailed        Kind = "UploadFailed"
	TranscriptionFailed Kind = "TranscriptionFailed"
	RenderFailed        Kind = "RenderFailed"
	StorageUploadFailed Kind = "StorageUploadFailed"
	StorageAuthFailed   Kind = "StorageAuthFailed"
	StorageQueryFailed  Kind = "StorageQueryFailed"
	StorageCreateFailed Kind = "StorageCreateFailed"
	StorageRenameFailed Kind = "StorageRenameFailed"
	HistoryWriteFailed  Kind = "HistoryWriteFailed"
)

// Request-level kinds.
const (
	InvalidInput Kind = "InvalidInput"
	Unauthorized Kind = "Unauthorized"
	NotFound     Kind = "NotFound"
	Internal     Kind = "Internal"
)

// ReauthMessage is shown whenever the remote store rejected the caller's credential.
const ReauthMessage = "Google Drive rejected the session credential. Please sign out and sign in again."

// Error is a categorized error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error around cause. A nil cause yields a plain New.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the user-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "An unexpected error occurred."
	}
	if e.Kind == StorageAuthFailed {
		return ReauthMessage
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to the status code the HTTP surface responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidInput, UploadFailed:
		return http.StatusBadRequest
	case Unauthorized, StorageAuthFailed:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case TranscriptionFailed, StorageUploadFailed, StorageQueryFailed, StorageCreateFailed, StorageRenameFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
