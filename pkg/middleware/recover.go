package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/braid-dev/braid/pkg/router"
	"github.com/braid-dev/braid/pkg/server"
)

// Recover converts a panic anywhere below it in the chain into a plain
// handler error, so one broken loader takes down a request instead of the
// process. The panic value and stack go to the request log; the client
// sees a generic 500 (or whatever an ancestor boundary substitutes).
func Recover() router.Middleware {
	return router.MiddlewareFunc(func(ctx server.Ctx, next func() error) (err error) {
		defer func() {
			if r := recover(); r != nil {
				ctx.Logger().Error("handler panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
				err = server.NewHandlerError(http.StatusInternalServerError,
					fmt.Errorf("panic: %v", r))
			}
		}()
		return next()
	})
}
