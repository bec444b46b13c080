package handlers

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/formdesk/server/internal/middleware"
	"github.com/formdesk/server/internal/services"
	"github.com/formdesk/server/pkg/logger"
	"github.com/formdesk/server/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// ImageStore keeps uploaded question images and serves them at public URLs.
type ImageStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PublicURL(objectName string) string
}

func parseID(value string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("id must be positive")
	}
	return uint(id), nil
}

func statusFor(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation, services.KindConflict:
		return fiber.StatusBadRequest
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindAccessDenied:
		return fiber.StatusForbidden
	case services.KindAuthRequired:
		return fiber.StatusUnauthorized
	case services.KindLocked:
		return fiber.StatusLocked
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes the envelope for a service error. Storage and
// unclassified failures are logged and reported without their cause.
func respondError(c *fiber.Ctx, action string, err error) error {
	kind := services.KindOf(err)
	status := statusFor(kind)

	if status == fiber.StatusInternalServerError {
		details := map[string]interface{}{
			"path":   c.Path(),
			"method": c.Method(),
		}
		if userID := logger.GetUserIDFromContext(c); userID != nil {
			logger.ErrorWithUser(*userID, action, err, details)
		} else {
			logger.Error(action, err, details)
		}
		return utils.Error(c, status, "internal server error")
	}

	var serviceErr *services.Error
	if !errors.As(err, &serviceErr) {
		return utils.Error(c, status, err.Error())
	}
	if len(serviceErr.Details) > 0 {
		return utils.ErrorWithDetails(c, status, serviceErr.Message, serviceErr.Details)
	}
	return utils.Error(c, status, serviceErr.Message)
}

// requireUserID reports the authenticated caller's id.
func requireUserID(c *fiber.Ctx) (uint, bool) {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return 0, false
	}
	return currentUser.ID, true
}

func unauthorized(c *fiber.Ctx) error {
	return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
}
