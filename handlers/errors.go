package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"indibox/logger"
	"indibox/services"
	"indibox/upload"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// ErrorHandler renders service errors as JSON with a matching status code.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, body := classify(err)
	if status >= fiber.StatusInternalServerError {
		logger.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(status).JSON(body)
}

func classify(err error) (int, ErrorResponse) {
	var (
		inErr  *services.InputError
		upErr  *services.UploadFailedError
		fibErr *fiber.Error
	)
	switch {
	case errors.As(err, &inErr):
		return fiber.StatusBadRequest, ErrorResponse{Error: "invalid input", Details: inErr.Fields}
	case errors.As(err, &upErr):
		return fiber.StatusUnprocessableEntity, ErrorResponse{Error: upErr.Err.Error(), Details: upErr.Errors}
	case errors.Is(err, upload.ErrRequiredAssetMissing):
		return fiber.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()}
	case errors.As(err, &fibErr):
		return fibErr.Code, ErrorResponse{Error: fibErr.Message}
	case errors.Is(err, services.ErrInvalidInput):
		return fiber.StatusBadRequest, ErrorResponse{Error: "invalid input"}
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized, ErrorResponse{Error: "authentication required"}
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, ErrorResponse{Error: "forbidden"}
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, ErrorResponse{Error: "not found"}
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict, ErrorResponse{Error: "already exists"}
	}
	return fiber.StatusInternalServerError, ErrorResponse{Error: "internal server error"}
}
