package middleware

import (
	"io"
	"log/slog"
	"net/http/httptest"

	"github.com/braid-dev/braid/pkg/server"
)

func newTestCtx(method, path string) server.Ctx {
	req := httptest.NewRequest(method, path, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return server.NewContext(req, logger)
}
