package http

import (
	"errors"
	"net/http"

	"zro-loans/internal/domain/application"

	"github.com/labstack/echo/v4"
)

type dataResponse struct {
	Data any `json:"data"`
}

func errJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, ErrorResponse{Error: msg})
}

// validationFailed answers 422 for both validator tags and usecase field errors.
func validationFailed(c echo.Context, err error) error {
	var ve *application.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: ve.Field, Message: ve.Message}},
		})
	}
	return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Details: ToFieldErrors(err),
	})
}

func isValidation(err error) bool {
	var ve *application.ValidationError
	return errors.As(err, &ve)
}
