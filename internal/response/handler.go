package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrorHandler converts every error returned by a route into the failure envelope.
// It is installed as fiber.Config.ErrorHandler.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		e := Classify(err)
		if e.Status >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Any("request_id", c.Locals("requestid")),
				zap.Error(err),
			)
		}
		return Fail(c, e)
	}
}

// Classify maps any error onto a public *Error.
func Classify(err error) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("Resource")
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch {
		case fe.Code == fiber.StatusUnauthorized:
			return Unauthorized(fe.Message)
		case fe.Code == fiber.StatusForbidden:
			return Forbidden(fe.Message)
		case fe.Code == fiber.StatusNotFound:
			return &Error{Status: fiber.StatusNotFound, Code: CodeNotFound, Message: fe.Message}
		case fe.Code >= 400 && fe.Code < 500:
			return BadRequest(fe.Message)
		}
	}
	return Internal(err)
}
