package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/braid-dev/braid/pkg/deferred"
	"github.com/braid-dev/braid/pkg/hydrate"
	"github.com/braid-dev/braid/pkg/router"
)

// Framework endpoint prefix. Everything else routes through the tree.
const (
	DataPrefix     = "/_braid/data"
	StreamPrefix   = "/_braid/stream"
	ManifestPath   = "/_braid/manifest"
	UploadPath     = "/_braid/upload"
	MetricsPath    = "/metrics"
	StreamIDHeader = "Braid-Stream"
)

// Options configures a Server.
type Options struct {
	// Logger receives request and pipeline logs. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Registry is the context registry. New freezes it; register every
	// context before constructing the server.
	Registry *hydrate.Registry

	// Renderer produces page responses. Defaults to JSONRenderer; an
	// HTML rendering engine plugs in here.
	Renderer Renderer

	// Middleware runs before every route's own middleware.
	Middleware []router.Middleware

	// Uploads handles multipart staging at /_braid/upload when set.
	Uploads http.Handler

	// Metrics is mounted at /metrics when set (promhttp.Handler()).
	Metrics http.Handler

	// StreamWindow is how long an unclaimed settle stream survives.
	StreamWindow time.Duration

	// EnvelopeKey, when set, signs every document's context payload into
	// a sealed token alongside the plain payload.
	EnvelopeKey []byte
}

// Option mutates Options.
type Option func(*Options)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithRegistry sets the context registry.
func WithRegistry(reg *hydrate.Registry) Option {
	return func(o *Options) { o.Registry = reg }
}

// WithRenderer sets the page renderer.
func WithRenderer(r Renderer) Option {
	return func(o *Options) { o.Renderer = r }
}

// WithMiddleware appends global pipeline middleware.
func WithMiddleware(mw ...router.Middleware) Option {
	return func(o *Options) { o.Middleware = append(o.Middleware, mw...) }
}

// WithUploads mounts an upload handler at /_braid/upload.
func WithUploads(h http.Handler) Option {
	return func(o *Options) { o.Uploads = h }
}

// WithMetricsHandler mounts a metrics handler at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *Options) { o.Metrics = h }
}

// WithStreamWindow sets the settle-stream attach window.
func WithStreamWindow(d time.Duration) Option {
	return func(o *Options) { o.StreamWindow = d }
}

// WithEnvelopeKey enables sealed context tokens. Navigators configured
// with the same key verify the token before rehydrating.
func WithEnvelopeKey(key []byte) Option {
	return func(o *Options) { o.EnvelopeKey = key }
}

// Server serves a route tree: it canonicalizes and matches paths, runs
// the pipeline, renders documents, and streams deferred settlements. The
// tree is immutable; development reloads swap whole trees.
type Server struct {
	mu   sync.RWMutex
	tree *router.Tree

	pipeline *Pipeline
	registry *hydrate.Registry
	renderer Renderer
	hub      *deferred.Hub
	envelope *hydrate.Envelope
	logger   *slog.Logger
	opts     Options

	httpServer *http.Server
}

// New creates a server over a built tree. The context registry freezes
// here: every registration must precede server construction.
func New(tree *router.Tree, opts ...Option) (*Server, error) {
	o := Options{
		Logger:   slog.Default(),
		Registry: hydrate.NewRegistry(),
		Renderer: &JSONRenderer{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := o.Registry.Freeze(); err != nil {
		return nil, err
	}

	srv := &Server{
		tree:     tree,
		pipeline: NewPipeline(o.Registry, o.Middleware, o.Logger),
		registry: o.Registry,
		renderer: o.Renderer,
		hub:      deferred.NewHub(o.StreamWindow),
		logger:   o.Logger,
		opts:     o,
	}
	if len(o.EnvelopeKey) > 0 {
		srv.envelope = hydrate.NewEnvelope(o.EnvelopeKey)
	}
	return srv, nil
}

// Tree returns the currently-serving route tree.
func (s *Server) Tree() *router.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// SwapTree replaces the serving tree wholesale. The dev server calls it
// after a successful rebuild; requests in flight keep the tree they
// started with.
func (s *Server) SwapTree(tree *router.Tree) {
	if tree == nil {
		return
	}
	s.mu.Lock()
	s.tree = tree
	s.mu.Unlock()
}

// Registry returns the frozen context registry.
func (s *Server) Registry() *hydrate.Registry { return s.registry }

// Handler builds the outer HTTP router: framework endpoints first, then
// the app catch-all.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get(ManifestPath, s.serveManifest)
	r.Get(StreamPrefix+"/{streamID}", s.serveStream)
	r.HandleFunc(DataPrefix+"/*", s.serveData)
	r.HandleFunc(DataPrefix, s.serveData)
	if s.opts.Uploads != nil {
		r.Method(http.MethodPost, UploadPath, s.opts.Uploads)
	}
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, MetricsPath, s.opts.Metrics)
	}
	r.NotFound(s.serveApp)

	return r
}

// ListenAndServe runs the server until the context is canceled, then
// drains with a grace period.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	s.logger.Info("braid server listening", slog.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// serveApp handles a page request: canonicalize, match, execute, render.
func (s *Server) serveApp(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, r.URL.Path, s.renderer)
}

// serveData is the navigator's loader transport: the same pipeline as the
// page, always rendered as JSON.
func (s *Server) serveData(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, DataPrefix)
	if path == "" {
		path = "/"
	}
	s.serve(w, r, path, &JSONRenderer{})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, rawPath string, renderer Renderer) {
	canon, err := router.CanonicalizePath(rawPath)
	if err != nil {
		s.logger.Warn("rejected request path",
			slog.String("path", rawPath),
			slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if canon.Changed {
		target := canon.Path
		if q := r.URL.RawQuery; q != "" {
			target += "?" + q
		}
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
		return
	}

	tree := s.Tree()
	match, ok := tree.Match(canon.Path)
	if !ok {
		s.renderError(w, r, renderer, &NotFoundError{Path: canon.Path})
		return
	}

	ctx := newExecCtx(r, s.logger)
	result := s.pipeline.Run(ctx, match)
	doc := result.Document

	if len(result.Deferred) > 0 {
		stream := deferred.NewStream(uuid.NewString(), result.Deferred, s.logger)
		s.hub.Put(stream)
		doc.StreamID = stream.ID()
		w.Header().Set(StreamIDHeader, stream.ID())
	}

	ctx.applyHeaders(w)

	if doc.RedirectURL != "" {
		http.Redirect(w, r, doc.RedirectURL, doc.Status)
		return
	}

	if s.envelope != nil && len(doc.Context) > 0 {
		token, err := s.envelope.Seal(doc.Context)
		if err != nil {
			s.logger.Error("context seal failed",
				slog.String("route", doc.RoutePattern),
				slog.Any("error", err))
		} else {
			doc.ContextToken = token
		}
	}

	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(doc.Status)
	if err := renderer.Render(w, r, doc); err != nil {
		s.logger.Error("render failed",
			slog.String("route", doc.RoutePattern),
			slog.Any("error", err))
	}
}

// renderError writes a taxonomy error without running the pipeline.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, renderer Renderer, err error) {
	status := StatusOf(err)
	doc := &Document{
		Status:  status,
		Data:    map[string]any{"error": PublicMessageOf(err)},
		Context: hydrate.Payload{},
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(status)
	if rerr := renderer.Render(w, r, doc); rerr != nil {
		s.logger.Error("render failed", slog.Any("error", rerr))
	}
}

// serveStream attaches a client to its settle stream.
func (s *Server) serveStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "streamID")
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	stream, ok := s.hub.Take(id)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	stream.ServeHTTP(w, r)
}

// serveManifest exposes the route manifest for the client navigator and
// the CLI.
func (s *Server) serveManifest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(s.Tree().Manifest()); err != nil {
		s.logger.Error("manifest render failed", slog.Any("error", err))
	}
}

// errStopped reports a server that never started.
var errStopped = errors.New("server: not running")

// Close shuts the listener down immediately. Tests use it; production
// paths prefer ListenAndServe's context drain.
func (s *Server) Close() error {
	if s.httpServer == nil {
		return errStopped
	}
	return s.httpServer.Close()
}
