package response

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "INSUFFICIENT_PERMISSIONS"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
	internalFailureMessage = "An unexpected error occurred"
)

// Detail describes one invalid input. Field is empty for body-level problems.
type Detail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error is a failure that already knows its status, code and public message.
type Error struct {
	Status  int
	Code    string
	Message string
	Details []Detail
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Validation builds a 400 carrying field level details in the given order.
func Validation(details ...Detail) *Error {
	return &Error{
		Status:  fiber.StatusBadRequest,
		Code:    CodeValidation,
		Message: "Validation failed",
		Details: details,
	}
}

// FieldError is a one-detail validation failure.
func FieldError(field, message string) *Error {
	return Validation(Detail{Field: field, Message: message})
}

func BadRequest(message string) *Error {
	return &Error{Status: fiber.StatusBadRequest, Code: CodeValidation, Message: message}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{Status: fiber.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "Insufficient permissions"
	}
	return &Error{Status: fiber.StatusForbidden, Code: CodeForbidden, Message: message}
}

// NotFound reports a missing resource. Rows owned by someone else are reported the same way.
func NotFound(resource string) *Error {
	return &Error{Status: fiber.StatusNotFound, Code: CodeNotFound, Message: resource + " not found"}
}

// Internal wraps an unexpected error. The cause is logged, never rendered.
func Internal(err error) *Error {
	return &Error{
		Status:  fiber.StatusInternalServerError,
		Code:    CodeInternal,
		Message: internalFailureMessage,
		cause:   err,
	}
}
