package router

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"sort"
	"strings"
)

// Ctx is the per-request context passed to middleware, loaders and actions.
// The server package provides the canonical implementation; tests use
// lightweight fakes.
type Ctx interface {
	// Request returns the underlying HTTP request.
	Request() *http.Request

	// StdContext returns the request's context.Context. Deferred producers
	// and outbound calls should derive from it so client disconnects
	// propagate.
	StdContext() context.Context

	// SetStdContext replaces the request's context.Context. Middleware
	// uses it to inject trace spans for downstream handlers; the context
	// is request-confined, so in-place replacement is safe.
	SetStdContext(stdCtx context.Context)

	// Method returns the HTTP method.
	Method() string

	// Path returns the canonicalized request path.
	Path() string

	// RoutePattern returns the matched route pattern (e.g. "/blog/[id]"),
	// or "" before matching completes.
	RoutePattern() string

	// Param returns a route parameter by name, or "".
	Param(name string) string

	// Params returns all route parameters.
	Params() *ParamBag

	// Query returns a query-string value by key, or "".
	Query(name string) string

	// SetHeader sets a response header.
	SetHeader(key, value string)

	// Status stages the response status code. The last call before the
	// response is sent wins.
	Status(code int)

	// StatusCode returns the currently staged status code.
	StatusCode() int

	// Text stages a plain-text response body, short-circuiting the loader
	// when called from middleware.
	Text(code int, body string) error

	// JSON stages a JSON response body, short-circuiting the loader when
	// called from middleware.
	JSON(code int, v any) error

	// SetValue stores a request-scoped value under an opaque key.
	SetValue(key, value any)

	// Value retrieves a request-scoped value.
	Value(key any) (any, bool)

	// Logger returns the request-scoped logger.
	Logger() *slog.Logger
}

// ClientCtx is the navigation-side counterpart of Ctx, handed to client
// loaders and components.
type ClientCtx interface {
	// StdContext returns the navigation's context.Context.
	StdContext() context.Context

	// Path returns the destination path.
	Path() string

	// Param returns a route parameter by name, or "".
	Param(name string) string

	// Params returns all route parameters.
	Params() *ParamBag

	// Query returns a query-string value by key, or "".
	Query(name string) string

	// ServerData fetches the matched route's server loader document. The
	// result is cached per navigation, so layouts and pages can both call
	// it without duplicate requests.
	ServerData() (any, error)

	// SetValue stores a navigation-scoped value under an opaque key.
	SetValue(key, value any)

	// Value retrieves a navigation-scoped value.
	Value(key any) (any, bool)

	// Logger returns the navigation-scoped logger.
	Logger() *slog.Logger
}

// LoaderFunc produces the data for a read request. The returned value may
// contain deferred fields; the pipeline partitions them out of the initial
// response.
type LoaderFunc func(ctx Ctx) (any, error)

// ActionFunc handles a write request (POST, PUT, PATCH, DELETE).
type ActionFunc func(ctx Ctx) (any, error)

// ErrorHandlerFunc turns an error raised below this node into substitute
// page data. Declaring one marks the node as an error boundary.
type ErrorHandlerFunc func(ctx Ctx, err error) (any, error)

// ClientLoaderFunc produces client-side data during navigation.
type ClientLoaderFunc func(ctx ClientCtx) (any, error)

// ComponentFunc builds the view for a route from its loader data. The
// returned value is opaque to braid; the UI layer renders it.
type ComponentFunc func(ctx ClientCtx, data any) any

// ErrorViewFunc builds the view shown when a descendant route fails.
// Declaring one marks the node as a client-side error boundary.
type ErrorViewFunc func(ctx ClientCtx, err error) any

// ServerModule is the server-side bundle a route file provides.
type ServerModule struct {
	// Middleware runs for this node and everything beneath it, root to
	// leaf, in slice order.
	Middleware []Middleware

	// Loader produces page data for read requests when this node is the
	// match leaf.
	Loader LoaderFunc

	// Action handles write requests when this node is the match leaf.
	Action ActionFunc

	// ErrorHandler, when set, catches errors raised at or below this node.
	ErrorHandler ErrorHandlerFunc
}

// ClientModule is the client-side bundle a route file provides.
type ClientModule struct {
	// Component builds the route's view.
	Component ComponentFunc

	// Loader runs during client-side navigation.
	Loader ClientLoaderFunc

	// ErrorView, when set, catches navigation errors at or below this node.
	ErrorView ErrorViewFunc
}

// Registry collects the module values for route paths ahead of Build. Go
// has no dynamic loading, so the route directory contributes structure and
// the registry contributes code; Build joins and cross-checks the two.
type Registry struct {
	servers map[string]*ServerModule
	clients map[string]*ClientModule
	dupes   []string
}

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return &Registry{
		servers: make(map[string]*ServerModule),
		clients: make(map[string]*ClientModule),
	}
}

// Server registers the server module for a route path (bracket notation,
// e.g. "/blog/[id]"). Registering the same path twice is reported as a
// build error.
func (r *Registry) Server(routePath string, m *ServerModule) *Registry {
	key := normalizeRoutePath(routePath)
	if _, ok := r.servers[key]; ok {
		r.dupes = append(r.dupes, key)
		return r
	}
	r.servers[key] = m
	return r
}

// Client registers the client module for a route path.
func (r *Registry) Client(routePath string, m *ClientModule) *Registry {
	key := normalizeRoutePath(routePath)
	if _, ok := r.clients[key]; ok {
		r.dupes = append(r.dupes, key)
		return r
	}
	r.clients[key] = m
	return r
}

// Route registers both modules for a route path in one call. Nil modules
// are skipped.
func (r *Registry) Route(routePath string, server *ServerModule, client *ClientModule) *Registry {
	if server != nil {
		r.Server(routePath, server)
	}
	if client != nil {
		r.Client(routePath, client)
	}
	return r
}

// serverPaths returns registered server paths in sorted order, for
// deterministic build diagnostics.
func (r *Registry) serverPaths() []string {
	paths := make([]string, 0, len(r.servers))
	for p := range r.servers {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (r *Registry) clientPaths() []string {
	paths := make([]string, 0, len(r.clients))
	for p := range r.clients {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// normalizeRoutePath cleans a registration path: leading slash required,
// duplicate and trailing slashes dropped.
func normalizeRoutePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	if p == "." {
		return "/"
	}
	return p
}

// ScannedRoute is one entry discovered in the route directory: a directory
// (one per path segment) or a colocated route file.
type ScannedRoute struct {
	// Path is the route path in bracket notation ("/" for the root).
	Path string

	// File is the entry's location inside the route directory, for
	// diagnostics.
	File string

	// IsDir reports whether the entry is a directory.
	IsDir bool

	// ServerFiles lists the files anchoring a server module at this path
	// (route.go, index.go, or the colocated file itself). More than one is
	// a duplicate-route error.
	ServerFiles []string

	// ClientFiles lists the files anchoring a client module at this path
	// (page.go, index.go, or the colocated file itself).
	ClientFiles []string
}

// HasServerFile reports whether a server module may be registered here.
func (s *ScannedRoute) HasServerFile() bool { return len(s.ServerFiles) > 0 }

// HasClientFile reports whether a client module may be registered here.
func (s *ScannedRoute) HasClientFile() bool { return len(s.ClientFiles) > 0 }
