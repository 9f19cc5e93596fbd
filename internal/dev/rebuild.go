package dev

import (
	"log/slog"
	"sync"

	berrors "github.com/braid-dev/braid/internal/errors"
	"github.com/braid-dev/braid/pkg/router"
)

// BuildFunc produces a fresh route tree from the project on disk.
type BuildFunc func() (*router.Tree, error)

// Rebuilder owns the dev server's current route tree. Rebuild swaps in a
// fresh tree when the build succeeds and keeps the last good one serving
// when it fails, so a typo in a route file never takes the server down.
type Rebuilder struct {
	build  BuildFunc
	logger *slog.Logger

	mu      sync.Mutex
	tree    *router.Tree
	lastErr error
}

// NewRebuilder creates a rebuilder and runs the initial build. The
// initial build has no previous tree to fall back on, so its failure is
// fatal.
func NewRebuilder(build BuildFunc, logger *slog.Logger) (*Rebuilder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tree, err := build()
	if err != nil {
		return nil, err
	}
	return &Rebuilder{build: build, logger: logger, tree: tree}, nil
}

// Tree returns the current serving tree.
func (r *Rebuilder) Tree() *router.Tree {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree
}

// Err returns the most recent rebuild failure, or nil when the serving
// tree matches the files on disk.
func (r *Rebuilder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Rebuild runs the build and reports whether the tree was swapped. On
// failure the previous tree stays in place and the structured error is
// retained for the overlay.
func (r *Rebuilder) Rebuild() (*router.Tree, bool) {
	tree, err := r.build()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		// Structured route errors carry their own codes; anything else
		// becomes a B4001.
		if _, ok := err.(*berrors.List); !ok {
			err = berrors.FromError(err, "B4001")
		}
		r.lastErr = err
		for _, be := range berrors.AsList(err) {
			r.logger.Error("rebuild failed",
				slog.String("code", be.Code),
				slog.String("error", be.FormatCompact()))
		}
		return r.tree, false
	}

	r.tree = tree
	r.lastErr = nil
	return tree, true
}

// ErrorJSON renders the current rebuild failure for the livereload
// channel, or "" when there is none.
func (r *Rebuilder) ErrorJSON() string {
	r.mu.Lock()
	err := r.lastErr
	r.mu.Unlock()
	if err == nil {
		return ""
	}
	list := berrors.AsList(err)
	if len(list) == 0 {
		return ""
	}
	return list[0].FormatJSON()
}
