package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/braid-dev/braid/pkg/router"
)

// Ctx is the execution context handed to middleware, loaders and actions.
// It is owned by a single in-flight request, mutable only during that
// request's handling, and discarded when the response (and any deferred
// streaming) completes.
type Ctx = router.Ctx

// bodyKind tracks what a middleware staged as the response body.
type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyText
	bodyJSON
)

// execCtx is the canonical Ctx implementation. Nothing here is shared:
// every request gets a fresh one, so no field needs locking.
type execCtx struct {
	request *http.Request
	stdCtx  context.Context
	logger  *slog.Logger

	pattern string
	params  *router.ParamBag
	values  map[any]any

	status    int
	headers   http.Header
	kind      bodyKind
	textBody  string
	jsonBody  any
	responded bool
}

// NewContext creates an execution context for a request. The pipeline
// calls it per request; tests and embedding servers may too.
func NewContext(r *http.Request, logger *slog.Logger) Ctx {
	return newExecCtx(r, logger)
}

func newExecCtx(r *http.Request, logger *slog.Logger) *execCtx {
	if logger == nil {
		logger = slog.Default()
	}
	return &execCtx{
		request: r,
		stdCtx:  r.Context(),
		logger:  logger,
		params:  router.EmptyParams(),
		values:  make(map[any]any),
		status:  http.StatusOK,
		headers: make(http.Header),
	}
}

// bind attaches the match results once routing completes.
func (c *execCtx) bind(pattern string, params *router.ParamBag) {
	c.pattern = pattern
	if params != nil {
		c.params = params
	}
	c.logger = c.logger.With(slog.String("route", pattern))
}

func (c *execCtx) Request() *http.Request { return c.request }

func (c *execCtx) StdContext() context.Context { return c.stdCtx }

func (c *execCtx) SetStdContext(stdCtx context.Context) {
	if stdCtx != nil {
		c.stdCtx = stdCtx
	}
}

func (c *execCtx) Method() string { return c.request.Method }

func (c *execCtx) Path() string { return c.request.URL.Path }

func (c *execCtx) RoutePattern() string { return c.pattern }

func (c *execCtx) Param(name string) string { return c.params.Get(name) }

func (c *execCtx) Params() *router.ParamBag { return c.params }

func (c *execCtx) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *execCtx) SetHeader(key, value string) {
	c.headers.Set(key, value)
}

func (c *execCtx) Status(code int) {
	c.status = code
}

func (c *execCtx) StatusCode() int { return c.status }

// Text stages a plain-text response. From middleware this short-circuits
// the rest of the chain when next is not called.
func (c *execCtx) Text(code int, body string) error {
	c.status = code
	c.kind = bodyText
	c.textBody = body
	c.responded = true
	return nil
}

// JSON stages a JSON response.
func (c *execCtx) JSON(code int, v any) error {
	c.status = code
	c.kind = bodyJSON
	c.jsonBody = v
	c.responded = true
	return nil
}

func (c *execCtx) SetValue(key, value any) {
	c.values[key] = value
}

func (c *execCtx) Value(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *execCtx) Logger() *slog.Logger { return c.logger }

// stagedBody returns what a short-circuiting middleware left behind.
func (c *execCtx) stagedBody() (any, bool) {
	switch c.kind {
	case bodyText:
		return c.textBody, true
	case bodyJSON:
		return c.jsonBody, true
	}
	return nil, false
}

// applyHeaders copies staged headers onto the real response writer.
func (c *execCtx) applyHeaders(w http.ResponseWriter) {
	for key, values := range c.headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
}
