package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmednasr/repo-recommender/server/internal/logging"
	"github.com/ahmednasr/repo-recommender/server/internal/recommender"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps an error onto an HTTP status and a stable machine code.
func classify(err error) (int, string) {
	var fe *fiber.Error
	var ve validator.ValidationErrors
	switch {
	case errors.Is(err, recommender.ErrInvalidArgument), errors.As(err, &ve):
		return fiber.StatusBadRequest, "invalid_argument"
	case errors.Is(err, recommender.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, recommender.ErrCorrupt):
		return fiber.StatusUnprocessableEntity, "corrupt_model"
	case errors.Is(err, recommender.ErrUpstreamUnavailable):
		return fiber.StatusServiceUnavailable, "upstream_unavailable"
	case errors.Is(err, recommender.ErrInternalModel):
		return fiber.StatusInternalServerError, "internal_model_error"
	case errors.As(err, &fe):
		return fe.Code, codeFor(fe.Code)
	default:
		return fiber.StatusInternalServerError, "internal"
	}
}

func codeFor(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "invalid_argument"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	default:
		if status >= 500 {
			return "internal"
		}
		return "error"
	}
}

// ErrorHandler is the fiber.Config.ErrorHandler for the API.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	if status >= fiber.StatusInternalServerError {
		logging.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Int("status", status).Msg("request failed")
	} else {
		logging.Debug().Err(err).Str("path", c.Path()).Int("status", status).Msg("request rejected")
	}
	return c.Status(status).JSON(errorResponse{Error: code, Message: err.Error()})
}
