package middleware

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDGenerates(t *testing.T) {
	ctx := newTestCtx(http.MethodGet, "/")

	err := RequestID().Handle(ctx, func() error {
		id := RequestIDFrom(ctx)
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("generated id %q is not a UUID: %v", id, err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRequestIDPassesInboundThrough(t *testing.T) {
	ctx := newTestCtx(http.MethodGet, "/")
	ctx.Request().Header.Set(RequestIDHeader, "upstream-77")

	_ = RequestID().Handle(ctx, func() error { return nil })

	if got := RequestIDFrom(ctx); got != "upstream-77" {
		t.Errorf("id = %q, want upstream-77", got)
	}
}

func TestRequestIDFromWithoutMiddleware(t *testing.T) {
	if got := RequestIDFrom(newTestCtx(http.MethodGet, "/")); got != "" {
		t.Errorf("id = %q, want empty", got)
	}
}
