package handlers

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/barboraplasovska/StudyBuddies-sub000/pkg/util/errorutil"
)

type validatable interface {
	Validate() error
}

// bind parses the body into req and runs its validation rules.
func bind(c *fiber.Ctx, req validatable) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		var fields validation.Errors
		if errors.As(err, &fields) {
			details := make(map[string]any, len(fields))
			for name, fieldErr := range fields {
				details[name] = fieldErr.Error()
			}
			return apperrors.NewValidationError("invalid payload", details)
		}
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return nil
}
