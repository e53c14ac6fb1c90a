package errors

import (
	stderrors "errors"
	"net/http"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/dealpipe/pkg/domain"
	"github.com/jordanlanch/dealpipe/pkg/logger"
	"github.com/jordanlanch/dealpipe/pkg/models"
	"github.com/labstack/echo/v4"
)

var log = logger.Default()

// SetLogger replaces the logger used for server-side error detail.
func SetLogger(l logger.Logger) {
	if l != nil {
		log = l
	}
}

// Respond writes the HTTP response matching err. Domain errors map to their
// status codes; anything else is a 500 whose cause is only logged.
func Respond(c echo.Context, err error) error {
	var de *domain.DomainError
	if !stderrors.As(err, &de) {
		return InternalError(c, err)
	}

	switch de.Code {
	case domain.ErrCodeNotFound:
		return NotFoundError(c, de.Message)
	case domain.ErrCodeValidation:
		return ValidationError(c, de.Message, de.Fields)
	case domain.ErrCodeForbidden:
		return ForbiddenError(c, de.Message)
	case domain.ErrCodeUnauthorized:
		return UnauthorizedError(c, de.Message)
	case domain.ErrCodeConflict:
		return ConflictError(c, de.Message)
	case domain.ErrCodeBadRequest:
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "bad_request",
			Message: de.Message,
		})
	default:
		return InternalError(c, err)
	}
}

// BadRequest answers a request body or query that could not be decoded.
func BadRequest(c echo.Context, err error) error {
	log.Warn("[BAD REQUEST]", "path", c.Request().URL.Path, "error", err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "bad_request",
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// ValidationError returns 422 with one message per invalid field. Messages
// come from domain rules and are safe to show.
func ValidationError(c echo.Context, message string, fields map[string]string) error {
	if message == "" {
		message = "Validation failed"
	}
	return c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
		Error:   "validation_error",
		Message: message,
		Fields:  fields,
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	log.Error("[INTERNAL ERROR]", "path", c.Request().URL.Path, "error", err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context, reason string) error {
	log.Debug("[UNAUTHORIZED]", "path", c.Request().URL.Path, "reason", reason)

	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: "You are not authorized to access this resource.",
	})
}

// ForbiddenError returns a generic forbidden error
func ForbiddenError(c echo.Context, reason string) error {
	log.Debug("[FORBIDDEN]", "path", c.Request().URL.Path, "reason", reason)

	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   "forbidden",
		Message: "You do not have permission to access this resource.",
	})
}

// NotFoundError returns a generic not found error
func NotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: "The requested resource was not found.",
	})
}

// ConflictError returns a generic conflict error
func ConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, models.ErrorResponse{
		Error:   "conflict",
		Message: message, // Message is safe to expose (e.g., "lead already converted")
	})
}
