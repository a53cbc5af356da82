package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// localEventID is the fiber local the webhook handler stores the Slack event
// id under.
const localEventID = "event_id"

// requestLogger logs one line per request. Slack delivery details are added
// when present: the event id, and the retry number and reason Slack sends on
// redelivery. 4xx logs at Warn and 5xx at Error.
func requestLogger(log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		reqID, _ := c.Locals("requestid").(string)
		fields := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", reqID,
		}
		if id, _ := c.Locals(localEventID).(string); id != "" {
			fields = append(fields, "event_id", id)
		}
		if n := c.Get("X-Slack-Retry-Num"); n != "" {
			fields = append(fields, "slack_retry", n, "slack_retry_reason", c.Get("X-Slack-Retry-Reason"))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Errorw("request failed", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warnw("request rejected", fields...)
		default:
			log.Infow("request", fields...)
		}
		return err
	}
}
