// Package respond maps service errors to HTTP responses.
package respond

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/GintGld/clip-editor/internal/client/media"
	"github.com/GintGld/clip-editor/internal/service"
)

var statuses = []struct {
	err    error
	status int
}{
	{service.ErrSessionNotFound, fiber.StatusNotFound},
	{service.ErrCutNotFound, fiber.StatusNotFound},
	{service.ErrSegmentNotFound, fiber.StatusNotFound},
	{service.ErrEntityNotFound, fiber.StatusNotFound},

	{service.ErrInvalidTime, fiber.StatusBadRequest},
	{service.ErrInvalidDuration, fiber.StatusBadRequest},
	{service.ErrInvalidParams, fiber.StatusBadRequest},
	{service.ErrInvalidGap, fiber.StatusBadRequest},
	{service.ErrEmptyFile, fiber.StatusBadRequest},

	{service.ErrNotAnalyzed, fiber.StatusConflict},
	{service.ErrNoGaps, fiber.StatusConflict},
	{service.ErrNothingSelected, fiber.StatusConflict},
	{service.ErrNothingToApply, fiber.StatusConflict},
	{service.ErrNothingToRevert, fiber.StatusConflict},
	{service.ErrAlreadySeparated, fiber.StatusConflict},
	{service.ErrBusy, fiber.StatusConflict},
	{service.ErrAudioApplied, fiber.StatusConflict},
}

// Error writes error response for err.
func Error(c *fiber.Ctx, err error) error {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return c.Status(s.status).JSON(fiber.Map{
				"error": s.err.Error(),
			})
		}
	}

	if key, ok := media.IsMissingConfig(err); ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":          "media service is not configured",
			"missing_config": key,
		})
	}
	if msg, ok := media.IsBusiness(err); ok {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": msg,
		})
	}
	if media.IsTransport(err) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "media service unavailable, please try again",
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
	})
}

// BadRequest writes 400 with the message.
func BadRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
