package handlers

import (
	"errors"
	"strings"

	"github.com/driveon/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// serviceError maps a core sentinel to its HTTP status and sends the
// standard error envelope. The wrapped prefix is the client message.
func serviceError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrQuotaExceeded):
		status = fiber.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrInvalidState):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	}

	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "Server error"
	} else {
		// Drop the sentinel suffix from wrapped messages
		for _, sentinel := range []error{
			services.ErrNotFound, services.ErrConflict, services.ErrQuotaExceeded,
			services.ErrInvalidState, services.ErrUnauthorized,
		} {
			msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": msg,
	})
}

// pageMeta builds the standard pagination block
func pageMeta(page, limit int, total int64) fiber.Map {
	return fiber.Map{
		"page":       page,
		"limit":      limit,
		"total":      total,
		"totalPages": (total + int64(limit) - 1) / int64(limit),
	}
}

// clampPage normalizes page/limit query values
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
