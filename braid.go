// Package braid resolves a file-based route directory into one immutable
// tree serving two pipelines: server loaders and actions over HTTP, and a
// client navigator that shares the same matching rules.
//
// This is the recommended import for applications:
//
//	import "github.com/braid-dev/braid"
//
//	reg := braid.Routes().
//		Server("/", &braid.ServerModule{Loader: home}).
//		Server("/blog/[id]", &braid.ServerModule{Loader: post})
//
//	if err := braid.Run(ctx, reg); err != nil {
//		log.Fatal(err)
//	}
package braid

import (
	"context"
	"os"

	"github.com/braid-dev/braid/internal/config"
	"github.com/braid-dev/braid/internal/dev"
	"github.com/braid-dev/braid/pkg/deferred"
	"github.com/braid-dev/braid/pkg/hydrate"
	"github.com/braid-dev/braid/pkg/router"
	"github.com/braid-dev/braid/pkg/server"
)

// Ctx is the server execution context handed to middleware, loaders and
// actions.
type Ctx = server.Ctx

// ClientCtx is the navigation context handed to client loaders and
// components.
type ClientCtx = router.ClientCtx

// ServerModule holds a route's server-side handlers.
type ServerModule = router.ServerModule

// ClientModule holds a route's client-side handlers.
type ClientModule = router.ClientModule

// Middleware wraps pipeline execution for a subtree.
type Middleware = router.Middleware

// MiddlewareFunc adapts a function to the Middleware interface.
type MiddlewareFunc = router.MiddlewareFunc

// Registry collects module registrations before Build.
type Registry = router.Registry

// Tree is an immutable route tree.
type Tree = router.Tree

// Server serves a route tree.
type Server = server.Server

// Deferred is a value that settles after the initial response.
type Deferred = deferred.Deferred

// Routes creates an empty module registry.
func Routes() *Registry { return router.NewRegistry() }

// Build resolves a route directory against the registrations.
var Build = router.Build

// New creates a server over a built tree.
var New = server.New

// Error constructors, re-exported from pkg/server.

// ErrNotFound is the sentinel all not-found failures unwrap to.
var ErrNotFound = server.ErrNotFound

// NotFound creates a not-found error for a path.
func NotFound(path string) error { return &server.NotFoundError{Path: path} }

// Fail wraps an internal error with an HTTP status. The message shown to
// clients stays generic.
var Fail = server.NewHandlerError

// Expose creates an error whose message is safe to show clients.
var Expose = server.Expose

// Redirect signals the pipeline to answer with a redirect. Status 0
// defaults to 303 See Other.
var Redirect = server.Redirect

// Go runs fn in the background and returns a Deferred that a loader can
// place in its result.
var Go = deferred.Go

// Define registers a typed context on a hydration registry.
func Define[T any](r *hydrate.Registry, name string) *hydrate.Context[T] {
	return hydrate.Define[T](r, name)
}

// NewHydrateRegistry creates an empty context registry for cross-boundary
// values.
var NewHydrateRegistry = hydrate.NewRegistry

// Run loads braid.json, builds the tree from the configured route
// directory, and serves it. With BRAID_DEV set (the braid dev command
// sets it) the dev loop wraps the server: the route directory is watched,
// the tree rebuilds on change, and browsers get livereload events.
func Run(ctx context.Context, reg *Registry, opts ...server.Option) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if err := cfg.CheckRoutes(); err != nil {
		return err
	}

	build := func() (*Tree, error) {
		return router.Build(os.DirFS(cfg.RoutesPath()), reg)
	}

	if os.Getenv("BRAID_DEV") == "" {
		tree, err := build()
		if err != nil {
			return err
		}
		srv, err := server.New(tree, opts...)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx, cfg.Address())
	}

	rebuilder, err := dev.NewRebuilder(build, nil)
	if err != nil {
		return err
	}
	srv, err := server.New(rebuilder.Tree(), opts...)
	if err != nil {
		return err
	}
	return dev.NewServer(dev.Options{
		Config:    cfg,
		App:       srv,
		Rebuilder: rebuilder,
	}).Start(ctx)
}
