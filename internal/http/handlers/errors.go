package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"tokoku/internal/auth"
	applog "tokoku/internal/log"
	"tokoku/internal/services"
	"tokoku/internal/storage"
)

var (
	errBadBody      = fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	errLoginNeeded  = fiber.NewError(fiber.StatusUnauthorized, "login required")
	errAccessDenied = fiber.NewError(fiber.StatusForbidden, "access denied")
)

// ErrorHandler turns handler errors into {"error": "..."} responses. Server
// errors are logged and their text is not sent to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status, body := classify(err)
	switch {
	case status >= fiber.StatusInternalServerError:
		applog.Error(c, "server.error", err, nil)
	case status == fiber.StatusBadRequest:
		applog.Security(c, "validation.fail", map[string]any{"error": err.Error()})
	}
	return c.Status(status).JSON(body)
}

func classify(err error) (int, fiber.Map) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest, fiber.Map{"error": ve.Error(), "problems": ve.Problems()}
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg := fe.Message
		if fe.Code >= fiber.StatusInternalServerError {
			msg = "something went wrong, please try again"
		}
		return fe.Code, fiber.Map{"error": msg}
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, fiber.Map{"error": err.Error()}
	case errors.Is(err, services.ErrBadCreds),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return fiber.StatusUnauthorized, fiber.Map{"error": err.Error()}
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, fiber.Map{"error": err.Error()}
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrInsufficientStock):
		return fiber.StatusConflict, fiber.Map{"error": err.Error()}
	case errors.Is(err, storage.ErrTooLarge):
		return fiber.StatusRequestEntityTooLarge, fiber.Map{"error": err.Error()}
	case errors.Is(err, storage.ErrUnknownBucket),
		errors.Is(err, storage.ErrBadType),
		errors.Is(err, storage.ErrBadKey):
		return fiber.StatusBadRequest, fiber.Map{"error": err.Error()}
	case errors.Is(err, storage.ErrNotFound):
		return fiber.StatusNotFound, fiber.Map{"error": err.Error()}
	}
	return fiber.StatusInternalServerError, fiber.Map{"error": "something went wrong, please try again"}
}

// bind decodes the JSON body into v.
func bind(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return errBadBody
	}
	return nil
}
