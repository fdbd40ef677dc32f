// internal/service/errors.go
package service

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/SyedDaiam9101/prospect/internal/backend/onnx"
	"github.com/SyedDaiam9101/prospect/internal/model"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(c *echo.Context, status int, errType, format string, args ...any) error {
	return c.JSON(status, map[string]any{
		"error": ErrorBody{
			Message: fmt.Sprintf(format, args...),
			Type:    errType,
		},
	})
}

func writeBadRequest(c *echo.Context, format string, args ...any) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", format, args...)
}

func writeNotReady(c *echo.Context, format string, args ...any) error {
	return writeError(c, http.StatusServiceUnavailable, "not_ready_error", format, args...)
}

func writeInternal(c *echo.Context, format string, args ...any) error {
	return writeError(c, http.StatusInternalServerError, "server_error", format, args...)
}

// writeModelError maps known model errors to appropriate HTTP status codes.
func writeModelError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrUntrained):
		return writeNotReady(c, "model is not trained yet")

	case errors.Is(err, model.ErrTrainInput):
		return writeBadRequest(c, "%v", err)

	case errors.Is(err, onnx.ErrNotTrainable):
		return writeBadRequest(c, "model is inference-only and cannot be trained")

	case errors.Is(err, model.ErrContract):
		return writeInternal(c, "prediction shape mismatch: %v", err)

	default:
		return writeInternal(c, "%v", err)
	}
}
