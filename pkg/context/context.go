package context

import (
	"context"
	"github.com/gofiber/fiber/v2"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDKey{}).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

// FromFiberCtx derives a cancellable context carrying the request ID. The
// returned cancel must be called once the handler is done with the context.
func FromFiberCtx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	requestID, ok := c.Locals(requestIDHeader).(string)
	if !ok || requestID == "" {
		requestID = c.Get(requestIDHeader)

		if requestID == "" {
			requestID = "unknown"
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return WithRequestID(ctx, requestID), cancel
}
