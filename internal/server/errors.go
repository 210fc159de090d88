package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/mentor-match/internal/conversation"
	"github.com/jonathan/mentor-match/internal/db"
	"github.com/jonathan/mentor-match/internal/server/middleware"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		fields     validator.ValidationErrors
		conflict   *db.SessionConflictError
		step       *conversation.StepError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &fields), errors.Is(err, conversation.ErrUnknownMentor):
		return http.StatusBadRequest
	case errors.Is(err, middleware.ErrNoUser):
		return http.StatusUnauthorized
	case errors.Is(err, db.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &conflict), errors.As(err, &step), errors.Is(err, conversation.ErrSessionClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the error text safe to show a client.
func PublicMessage(err error) string {
	var fields validator.ValidationErrors
	switch {
	case errors.As(err, &fields):
		return extractValidationErrors(fields)
	case HTTPStatus(err) >= http.StatusInternalServerError:
		return "internal server error"
	case errors.Is(err, db.ErrSessionNotFound):
		return db.ErrSessionNotFound.Error()
	default:
		return err.Error()
	}
}

// extractValidationErrors extracts validation error messages from validator errors.
func extractValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		// Return first validation error for simplicity
		ve := validationErrors[0]
		return fmt.Sprintf("validation error: %s - %s", ve.Field(), ve.Tag())
	}
	return "validation error: invalid request"
}
