package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/praveenrathi4/complain-app/internal/api/dto"
	apperrors "github.com/praveenrathi4/complain-app/pkg/util/errorutil"
)

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("Invalid request payload", []apperrors.FieldError{bodyFieldError(err)})
	}
	return nil
}

// bodyFieldError names the offending JSON field when the decoder knows it.
func bodyFieldError(err error) apperrors.FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperrors.FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type.Kind()),
		}
	}
	return apperrors.FieldError{Field: "body", Message: "Request body could not be parsed"}
}

func ok(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.OK(message, data))
}
