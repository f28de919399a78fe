// Package apperrors holds the sentinel errors services return. The HTTP layer maps
// each sentinel to a status code; anything else is a 500.
package apperrors

import "errors"

var (
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrBadRequest            = errors.New("bad request")
)

// Transcript session errors
var (
	ErrSessionNotFound     = errors.New("transcript session not found")
	ErrRecordNotFound      = errors.New("course record not found")
	ErrRequirementNotFound = errors.New("prerequisite requirement not found")
	ErrInvalidRecord       = errors.New("invalid course record")
)

// Document errors
var (
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrDocumentTooLarge    = errors.New("document too large")
	ErrNoDocuments         = errors.New("no documents provided")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
)

// CustomError attaches a user-facing message to a sentinel. errors.Is still
// matches the sentinel.
type CustomError struct {
	Err     error
	Message string
}

func (e *CustomError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "unknown error"
	}
}

func (e *CustomError) Unwrap() error { return e.Err }

// NewCustomError wraps err with message.
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{Err: err, Message: message}
}

// NewBadRequestError reports a malformed request with message.
func NewBadRequestError(message string) error {
	return NewCustomError(ErrBadRequest, message)
}
