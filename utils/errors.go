package utils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

// Error kinds returned by the messaging, feed and viewing services. Handlers
// map them onto HTTP statuses so the client can tell "already handled by
// someone else" apart from "not allowed" and "bad input".
const (
	ErrValidation    = "validation_error"
	ErrAuthorization = "authorization_error"
	ErrNotFound      = "not_found_error"
	ErrInvalidState  = "invalid_state_error"
)

type AppError struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func ValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func AuthorizationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidStateError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

func statusFor(kind string) int {
	switch kind {
	case ErrValidation:
		return iris.StatusBadRequest
	case ErrAuthorization:
		return iris.StatusForbidden
	case ErrNotFound:
		return iris.StatusNotFound
	case ErrInvalidState:
		return iris.StatusConflict
	}
	return iris.StatusInternalServerError
}

// WriteError renders any service error as a JSON body with its kind; unknown
// errors collapse to a 500 without leaking internals.
func WriteError(ctx iris.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		ctx.StatusCode(statusFor(appErr.Kind))
		ctx.JSON(appErr)
		return
	}
	CreateInternalServerError(ctx)
}

func CreateError(statusCode int, title string, detail string, ctx iris.Context) {
	ctx.StopWithJSON(statusCode, iris.Map{"error": title, "message": detail})
}

func CreateInternalServerError(ctx iris.Context) {
	CreateError(iris.StatusInternalServerError, "Internal Server Error", "something went wrong", ctx)
}

func CreateNotFound(ctx iris.Context) {
	CreateError(iris.StatusNotFound, "Not Found", "resource not found", ctx)
}

// HandleValidationErrors turns ReadJSON/validator failures into a 400 with a
// field breakdown when available.
func HandleValidationErrors(err error, ctx iris.Context) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]iris.Map, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			fields = append(fields, iris.Map{
				"field": fieldErr.Field(),
				"tag":   fieldErr.Tag(),
				"value": fieldErr.Param(),
			})
		}
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
			"error":   "Validation Error",
			"message": "one or more fields failed validation",
			"fields":  fields,
		})
		return
	}
	CreateError(iris.StatusBadRequest, "Bad Request", err.Error(), ctx)
}
