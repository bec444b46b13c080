package middleware

import (
	"time"

	"github.com/formdesk/server/pkg/logger"
	"github.com/gofiber/fiber/v2"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger emits one http_request line per request. Client errors are
// warnings, server errors are errors.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" {
			return c.Next()
		}

		started := time.Now()
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		c.Locals("requestID", requestID)
		c.Set(RequestIDHeader, requestID)

		err := c.Next()

		status := c.Response().StatusCode()
		details := map[string]interface{}{
			"request_id":    requestID,
			"method":        c.Method(),
			"path":          c.Path(),
			"status_code":   status,
			"latency_ms":    time.Since(started).Milliseconds(),
			"ip":            c.IP(),
			"user_agent":    c.Get(fiber.HeaderUserAgent),
			"request_body":  logger.GetRequestBodySummary(c),
			"response_body": logger.GetResponseSizeSummary(c),
		}
		if formID := c.Params("id"); formID != "" {
			details["form_id"] = formID
		}

		userID := logger.GetUserIDFromContext(c)
		switch {
		case status >= fiber.StatusInternalServerError && userID != nil:
			logger.ErrorWithUser(*userID, "http_request", err, details)
		case status >= fiber.StatusInternalServerError:
			logger.Error("http_request", err, details)
		case status >= fiber.StatusBadRequest && userID != nil:
			logger.WarnWithUser(*userID, "http_request", details)
		case status >= fiber.StatusBadRequest:
			logger.Warn("http_request", details)
		case userID != nil:
			logger.InfoWithUser(*userID, "http_request", details)
		default:
			logger.Info("http_request", details)
		}

		return err
	}
}

var securityEvents = map[int]string{
	fiber.StatusUnauthorized:    "auth_required",
	fiber.StatusForbidden:       "access_denied",
	fiber.StatusNotFound:        "not_found",
	fiber.StatusLocked:          "form_locked",
	fiber.StatusTooManyRequests: "rate_limited",
}

// SecurityLogger records refused requests under a dedicated action so they
// can be alerted on separately from ordinary traffic.
func SecurityLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		reason, ok := securityEvents[c.Response().StatusCode()]
		if !ok {
			return err
		}

		details := map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
			"ip":     c.IP(),
			"reason": reason,
		}
		if userID := logger.GetUserIDFromContext(c); userID != nil {
			logger.WarnWithUser(*userID, reason, details)
		} else {
			logger.Warn(reason+"_unauthenticated", details)
		}
		return err
	}
}
