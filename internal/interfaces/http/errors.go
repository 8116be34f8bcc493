package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fernanda-api/internal/application/dto"
	"github.com/jhoicas/fernanda-api/internal/domain"
)

// writeError traduce los errores de dominio a status HTTP + dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "error interno"
	}
	reqID, _ := c.Locals(LocalRequestID).(string)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg, RequestID: reqID})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return fiber.StatusRequestTimeout, "TIMEOUT"
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return fiber.StatusConflict, "EMAIL_EXISTS"
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrConfiguration):
		return fiber.StatusServiceUnavailable, "NOT_CONFIGURED"
	case errors.Is(err, domain.ErrConnectivity), errors.Is(err, domain.ErrRemote):
		return fiber.StatusBadGateway, "UPSTREAM"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

// outcomeStatus status HTTP de un resultado de herramienta; el cuerpo siempre es el resultado.
func outcomeStatus(o dto.Outcome) int {
	switch o.Status {
	case dto.StatusSuccess:
		return fiber.StatusOK
	case dto.StatusNotFound:
		return fiber.StatusNotFound
	}
	switch o.ErrorKind {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindConfiguration:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadGateway
	}
}

// isTimeout detecta errores de timeout/cancelación de contexto en el mensaje de error.
func isTimeout(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "context canceled")
}
