package dev

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/braid-dev/braid/internal/config"
	"github.com/braid-dev/braid/pkg/server"
)

// Options configures the development server.
type Options struct {
	// Config is the loaded project configuration.
	Config *config.Config

	// App is the braid server serving the project.
	App *server.Server

	// Rebuilder owns the route tree; its build function reruns on
	// every change.
	Rebuilder *Rebuilder

	// Logger receives dev loop logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server wraps the app server with the dev loop: watch, rebuild, swap,
// livereload.
type Server struct {
	config    *config.Config
	app       *server.Server
	rebuilder *Rebuilder
	watcher   *Watcher
	hub       *Hub
	logger    *slog.Logger

	httpServer *http.Server
	mu         sync.Mutex
	running    bool
}

// NewServer creates the dev server around an already-built app server.
func NewServer(o Options) *Server {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	watchPaths := make([]string, 0, len(o.Config.Dev.Watch)+1)
	watchPaths = append(watchPaths, o.Config.RoutesPath())
	for _, p := range o.Config.Dev.Watch {
		watchPaths = append(watchPaths, filepath.Join(o.Config.Dir(), p))
	}

	watcher := NewWatcher(WatcherConfig{
		Paths:    watchPaths,
		Ignore:   o.Config.Dev.Ignore,
		Interval: time.Duration(o.Config.Dev.DebounceMS) * time.Millisecond,
	})

	return &Server{
		config:    o.Config,
		app:       o.App,
		rebuilder: o.Rebuilder,
		watcher:   watcher,
		hub:       NewHub(),
		logger:    logger,
	}
}

// Start runs the dev server until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	s.watcher.OnChange(func(paths []string) { s.handleChanges(paths) })
	go s.watcher.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle(ReloadPath, s.hub)
	mux.Handle("/", injectScript(s.app.Handler()))

	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("dev server listening", slog.String("url", s.config.URL()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Stop shuts the dev loop down.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false

	s.watcher.Stop()
	s.hub.Close()
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// handleChanges rebuilds the tree after a change batch and tells the
// browsers. A failed rebuild keeps the old tree and raises the overlay.
func (s *Server) handleChanges(paths []string) {
	for _, p := range paths {
		s.logger.Debug("changed", slog.String("path", p))
	}

	tree, swapped := s.rebuilder.Rebuild()
	if !swapped {
		s.hub.NotifyError(s.rebuilder.ErrorJSON())
		return
	}

	s.app.SwapTree(tree)
	s.hub.ClearError()
	s.hub.NotifyReload()
	s.logger.Info("rebuilt",
		slog.Int("routes", len(tree.Routes())),
		slog.Int("browsers", s.hub.ClientCount()))
}

// injectScript appends the livereload client to HTML responses.
func injectScript(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		iw := &injectWriter{ResponseWriter: w}
		next.ServeHTTP(iw, r)
		iw.flush()
	})
}

// injectWriter buffers HTML responses so the livereload script can be
// spliced in before </body>. Non-HTML responses pass straight through.
type injectWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	decided  bool
	buffered bool
}

func (w *injectWriter) WriteHeader(status int) {
	if w.decided {
		return
	}
	w.decided = true
	w.status = status
	if strings.Contains(w.Header().Get("Content-Type"), "text/html") {
		w.buffered = true
		return
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *injectWriter) Write(p []byte) (int, error) {
	if !w.decided {
		w.WriteHeader(http.StatusOK)
	}
	if w.buffered {
		return w.buf.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

// Flush forwards to the underlying writer so streaming responses keep
// working; buffered HTML flushes once at the end.
func (w *injectWriter) Flush() {
	if w.buffered {
		return
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *injectWriter) flush() {
	if !w.buffered {
		return
	}
	body := w.buf.String()
	if idx := strings.LastIndex(body, "</body>"); idx != -1 {
		body = body[:idx] + ClientScript + body[idx:]
	} else {
		body += ClientScript
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.ResponseWriter.WriteHeader(w.status)
	w.ResponseWriter.Write([]byte(body))
}
