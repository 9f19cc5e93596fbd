package middleware

import (
	"github.com/google/uuid"

	"github.com/braid-dev/braid/pkg/router"
	"github.com/braid-dev/braid/pkg/server"
)

// RequestIDHeader carries the request ID in and out.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID tags every request with an ID: the inbound header when a
// proxy already assigned one, a fresh UUID otherwise. The ID echoes back
// on the response and is readable downstream via RequestIDFrom.
func RequestID() router.Middleware {
	return router.MiddlewareFunc(func(ctx server.Ctx, next func() error) error {
		id := ctx.Request().Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		ctx.SetHeader(RequestIDHeader, id)
		ctx.SetValue(requestIDKey{}, id)
		return next()
	})
}

// RequestIDFrom returns the request's ID, or "" when RequestID is not
// installed above the caller.
func RequestIDFrom(ctx server.Ctx) string {
	if v, ok := ctx.Value(requestIDKey{}); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
