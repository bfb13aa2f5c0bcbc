package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

const (
	CodeValidation           = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeConflict             = "CONFLICT"
	CodeInternal             = "INTERNAL_ERROR"
	CodeSequenceGeneration   = "SEQUENCE_GENERATION_FAILED"
	CodeMissingResolution    = "MISSING_RESOLUTION"
	CodeNotificationDispatch = "NOTIFICATION_DISPATCH_FAILED"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewSequenceGenerationError reports that a ticket number could not be drawn
// after the retry budget was spent. Nothing has been persisted when it is returned.
func NewSequenceGenerationError(counterID string, attempts int, err error) error {
	return &DomainError{
		Code:       CodeSequenceGeneration,
		Message:    "could not generate ticket number, please retry",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"counter": counterID, "attempts": attempts},
		Err:        err,
	}
}

// NewMissingResolutionError rejects a transition into Resolved/Closed without
// resolution text. Details carry the UI tab the client should focus.
func NewMissingResolutionError() error {
	return &DomainError{
		Code:       CodeMissingResolution,
		Message:    "resolution is required before resolving or closing a ticket",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"tab": "resolution"},
	}
}

// NewNotificationDispatchError wraps a failed notification. It is reported as
// a warning next to a committed mutation, never as the request's failure.
func NewNotificationDispatchError(kind string, recipients []string, err error) *DomainError {
	return &DomainError{
		Code:       CodeNotificationDispatch,
		Message:    fmt.Sprintf("%s notification could not be delivered", kind),
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"kind": kind, "recipients": recipients},
		Err:        err,
	}
}

// HasCode reports whether err is a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return NewDomainError(codeForStatus(fiberErr.Code), fiberErr.Message, fiberErr.Code, nil)
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}
