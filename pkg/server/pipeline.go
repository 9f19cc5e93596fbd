package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/braid-dev/braid/pkg/deferred"
	"github.com/braid-dev/braid/pkg/hydrate"
	"github.com/braid-dev/braid/pkg/router"
)

// Phase is the request state machine position. Transitions are one-way:
//
//	Matching → Executing → {ShortCircuited | Erred} → ResponseSent
//	ResponseSent → [StreamingDeferred] → Closed
//
// Erred splits on boundary lookup: a caught error produces the boundary's
// substitute document (ResponseSent), an uncaught one is fatal.
type Phase int

const (
	PhaseMatching Phase = iota
	PhaseExecuting
	PhaseShortCircuited
	PhaseErred
	PhaseFatal
	PhaseResponseSent
	PhaseStreamingDeferred
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseMatching:
		return "matching"
	case PhaseExecuting:
		return "executing"
	case PhaseShortCircuited:
		return "shortCircuited"
	case PhaseErred:
		return "erred"
	case PhaseFatal:
		return "fatal"
	case PhaseResponseSent:
		return "responseSent"
	case PhaseStreamingDeferred:
		return "streamingDeferred"
	case PhaseClosed:
		return "closed"
	}
	return "unknown"
}

// Result is what one pipeline run produces: the document to render, the
// deferred values still pending, and where the state machine ended up.
type Result struct {
	Document *Document
	Deferred []*deferred.Deferred
	Phase    Phase
}

// Pipeline composes and executes matched chains. It holds only shared
// read-only state (tree-independent), so one pipeline serves every
// request concurrently.
type Pipeline struct {
	registry *hydrate.Registry
	global   []router.Middleware
	logger   *slog.Logger
}

// NewPipeline creates a pipeline executor. The registry must be frozen
// before the first Run; global middleware runs before every route's own.
func NewPipeline(registry *hydrate.Registry, global []router.Middleware, logger *slog.Logger) *Pipeline {
	if registry == nil {
		registry = hydrate.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{registry: registry, global: global, logger: logger}
}

// Run executes a matched chain: global middleware, then each node's
// middleware root to leaf, then the leaf's loader (reads) or action
// (writes). Middleware short-circuits by staging a response and not
// calling next. Errors bubble to the nearest ancestor error boundary at
// or above the failing node; an uncaught error becomes a generic
// response that leaks nothing.
func (p *Pipeline) Run(ctx Ctx, m *router.Match) *Result {
	exec, ok := ctx.(*execCtx)
	if !ok {
		exec = newExecCtx(ctx.Request(), ctx.Logger())
	}
	exec.bind(m.Pattern(), m.Params)

	run := &chainRun{
		pipeline: p,
		ctx:      exec,
		match:    m,
		phase:    PhaseExecuting,
		depth:    -1,
	}
	return run.execute()
}

// chainRun is the per-request execution state.
type chainRun struct {
	pipeline *Pipeline
	ctx      *execCtx
	match    *router.Match
	phase    Phase

	// depth is the index of the chain node currently executing, used to
	// scope boundary lookup to ancestors of the failing node. -1 means
	// global middleware.
	depth    int
	ranFinal bool
}

func (r *chainRun) execute() *Result {
	err := r.runChain()

	// Redirects are control flow: no boundary consultation, no body.
	var redirect *RedirectError
	if errors.As(err, &redirect) {
		r.phase = PhaseResponseSent
		return r.finish(&Document{
			Status:       redirect.Status,
			RedirectURL:  redirect.URL,
			RoutePattern: r.match.Pattern(),
		})
	}

	if err != nil {
		r.phase = PhaseErred
		return r.bubble(err)
	}

	if !r.ranFinal {
		r.phase = PhaseShortCircuited
	}

	body, staged := r.ctx.stagedBody()
	doc := &Document{
		Status:       r.ctx.StatusCode(),
		Data:         body,
		RoutePattern: r.match.Pattern(),
	}
	if !staged {
		doc.Data = nil
	}
	r.phase = PhaseResponseSent
	return r.finish(doc)
}

// runChain composes the middleware list and the leaf handler into next
// closures and runs them. Each node's middleware records its depth first,
// so an error can be attributed to the node that raised it.
func (r *chainRun) runChain() error {
	final := func() error {
		r.depth = len(r.match.Chain) - 1
		r.ranFinal = true
		return r.runLeaf()
	}

	next := final
	for i := len(r.match.Chain) - 1; i >= 0; i-- {
		node := r.match.Chain[i]
		mw := node.Middleware()
		if len(mw) == 0 {
			continue
		}
		next = r.wrapNode(i, mw, next)
	}
	if len(r.pipeline.global) > 0 {
		next = r.wrapNode(-1, r.pipeline.global, next)
	}

	return next()
}

// wrapNode chains one node's middleware in declaration order ahead of
// next, stamping the node's depth before the first handler runs.
func (r *chainRun) wrapNode(depth int, mw []router.Middleware, next func() error) func() error {
	chain := next
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		inner := chain
		chain = func() error {
			return m.Handle(r.ctx, inner)
		}
	}
	return func() error {
		r.depth = depth
		return chain()
	}
}

// runLeaf invokes the loader or action on the match leaf and stages its
// result. A response already staged by middleware wins over the loader's
// return value.
func (r *chainRun) runLeaf() error {
	leaf := r.match.Leaf()
	srv := leaf.Server()

	var handler router.LoaderFunc
	switch r.ctx.Method() {
	case http.MethodGet, http.MethodHead:
		if srv != nil && srv.Loader != nil {
			handler = srv.Loader
		}
	default:
		if srv != nil && srv.Action != nil {
			handler = router.LoaderFunc(srv.Action)
		} else {
			return NewHandlerError(http.StatusMethodNotAllowed, ErrMethodNotAllowed)
		}
	}

	if handler == nil {
		// Component-only route: the client module renders with no data.
		// A leaf with neither loader nor component has nothing to serve
		// for reads, the mirror of a write hitting a route with no action.
		cm := leaf.Client()
		if cm == nil || cm.Component == nil {
			return NewHandlerError(http.StatusMethodNotAllowed, ErrMethodNotAllowed)
		}
		return nil
	}

	data, err := handler(r.ctx)
	if err != nil {
		return err
	}
	if r.ctx.responded {
		return nil
	}
	if data != nil {
		r.ctx.jsonBody = data
		r.ctx.kind = bodyJSON
	}
	return nil
}

// bubble walks the matched chain from the failing node toward the root
// looking for an error boundary. Intermediate nodes are skipped without
// executing their normal path. A boundary that fails too passes the new
// error further up.
func (r *chainRun) bubble(err error) *Result {
	start := r.depth
	if start >= len(r.match.Chain) {
		start = len(r.match.Chain) - 1
	}

	for i := start; i >= 0; i-- {
		node := r.match.Chain[i]
		if !node.Boundary() {
			continue
		}

		r.ctx.Logger().Warn("error caught by boundary",
			slog.String("boundary", node.Pattern()),
			slog.Any("error", err))

		data, berr := node.Server().ErrorHandler(r.ctx, err)
		if berr != nil {
			err = berr
			continue
		}

		r.phase = PhaseResponseSent
		return r.finish(&Document{
			Status:       StatusOf(err),
			Data:         data,
			Boundary:     node.Pattern(),
			RoutePattern: r.match.Pattern(),
		})
	}

	return r.fatal(err)
}

// fatal maps an uncaught error to a generic response. The cause is
// logged, never sent, unless it was explicitly marked exposable.
func (r *chainRun) fatal(err error) *Result {
	r.phase = PhaseFatal
	status := StatusOf(err)
	if status >= 500 {
		r.ctx.Logger().Error("unhandled request error", slog.Any("error", err))
	} else {
		r.ctx.Logger().Warn("request failed", slog.Any("error", err))
	}

	return r.finish(&Document{
		Status:       status,
		Data:         map[string]any{"error": PublicMessageOf(err)},
		RoutePattern: r.match.Pattern(),
	})
}

// finish partitions deferred values, dehydrates the context registry into
// the document, and settles the final phase.
func (r *chainRun) finish(doc *Document) *Result {
	result := &Result{Document: doc}

	if doc.Data != nil && doc.RedirectURL == "" {
		collection := deferred.Collect(doc.Data)
		doc.Data = collection.Data
		for _, d := range collection.Deferred {
			doc.Deferred = append(doc.Deferred, d.ID())
		}
		result.Deferred = collection.Deferred
	}

	payload, err := r.pipeline.registry.SerializeAll(r.ctx)
	if err != nil {
		// Context serialization failing is a server bug; the page still
		// ships, hydration degrades to server-rendered state only.
		r.ctx.Logger().Error("context serialization failed", slog.Any("error", err))
		payload = hydrate.Payload{}
	}
	doc.Context = payload

	if len(result.Deferred) > 0 {
		r.phase = PhaseStreamingDeferred
	} else if r.phase != PhaseFatal {
		r.phase = PhaseClosed
	}
	result.Phase = r.phase
	return result
}
