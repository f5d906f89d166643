package middleware

import (
	"BlinkRise/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
)

func LoggerConfig() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID, ok := c.Locals(RequestIDKey).(string)
		if !ok || requestID == "" {
			requestID = "unknown"
		}

		c.Locals(log.RequestIDKey, requestID)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		if err != nil && status == fiber.StatusInternalServerError {
			return err
		}

		logFields := log.Fields{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"ip":         c.IP(),
			"host":       c.Hostname(),
			"user_agent": c.Get("User-Agent"),
			"referer":    c.Get("Referer"),
		}

		if q := c.Request().URI().QueryString(); len(q) > 0 {
			logFields["query"] = string(q)
		}

		// Body() drains a stream body, so streamed responses are logged
		// without a size.
		if c.Response().IsBodyStream() {
			logFields["streaming"] = true
		} else {
			logFields["response_size"] = len(c.Response().Body())
		}

		if status >= 500 {
			log.Error(logFields, "Server error")
		} else if status >= 400 {
			log.Warn(logFields, "Client error")
		} else {
			log.Info(logFields, "Success")
		}

		return err
	}
}
