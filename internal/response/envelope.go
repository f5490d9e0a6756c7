package response

import "github.com/gofiber/fiber/v2"

// SuccessBody is the payload of every 2xx response that has a body.
// Data is always serialized, as null when nothing is returned.
type SuccessBody struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	Pagination any    `json:"pagination,omitempty"`
}

type FailureBody struct {
	Success bool         `json:"success"`
	Error   FailureError `json:"error"`
}

type FailureError struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []Detail `json:"details,omitempty"`
}

func NewSuccess(message string, data any) SuccessBody {
	return SuccessBody{Success: true, Message: message, Data: data}
}

func NewFailure(code, message string, details []Detail) FailureBody {
	return FailureBody{
		Success: false,
		Error:   FailureError{Code: code, Message: message, Details: details},
	}
}

// Success writes the envelope with the given status. A 204 is sent without a body.
func Success(c *fiber.Ctx, status int, message string, data any) error {
	if status == fiber.StatusNoContent {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(status).JSON(NewSuccess(message, data))
}

func OK(c *fiber.Ctx, message string, data any) error {
	return Success(c, fiber.StatusOK, message, data)
}

func Created(c *fiber.Ctx, message string, data any) error {
	return Success(c, fiber.StatusCreated, message, data)
}

// Accepted completes the status pairings of the envelope (200, 201, 202, 204).
// No route defers work yet.
func Accepted(c *fiber.Ctx, message string, data any) error {
	return Success(c, fiber.StatusAccepted, message, data)
}

func NoContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// List writes a page of items. A nil slice is rendered as an empty array.
func List[T any](c *fiber.Ctx, message string, items []T, meta any) error {
	if items == nil {
		items = []T{}
	}
	body := NewSuccess(message, items)
	body.Pagination = meta
	return c.Status(fiber.StatusOK).JSON(body)
}

// Fail writes a failure envelope directly.
func Fail(c *fiber.Ctx, e *Error) error {
	return c.Status(e.Status).JSON(NewFailure(e.Code, e.Message, e.Details))
}
