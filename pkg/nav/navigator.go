package nav

import (
	"context"
	"errors"
	"log/slog"

	"github.com/braid-dev/braid/pkg/deferred"
	"github.com/braid-dev/braid/pkg/hydrate"
	"github.com/braid-dev/braid/pkg/router"
	"github.com/braid-dev/braid/pkg/server"
)

// maxRedirects caps server-driven redirect chains per navigation.
const maxRedirects = 5

// Options configures a Navigator.
type Options struct {
	// Logger receives navigation logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Registry is the context registry used for rehydration. It must hold
	// the same registrations as the server's.
	Registry *hydrate.Registry

	// History records completed navigations. Defaults to MemoryHistory.
	History History

	// EnvelopeKey verifies the server's sealed context tokens. It must
	// match the key the server seals with.
	EnvelopeKey []byte
}

// Option mutates Options.
type Option func(*Options)

// WithLogger sets the navigator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithRegistry sets the rehydration registry.
func WithRegistry(reg *hydrate.Registry) Option {
	return func(o *Options) { o.Registry = reg }
}

// WithHistory sets the history backend.
func WithHistory(h History) Option {
	return func(o *Options) { o.History = h }
}

// WithEnvelopeKey enables sealed-context verification. Documents carrying
// a context token rehydrate from the verified copy; a token that fails
// verification is a navigation error.
func WithEnvelopeKey(key []byte) Option {
	return func(o *Options) { o.EnvelopeKey = key }
}

// View is one component snapshot in a navigation's root-to-leaf render
// order. Content is whatever the route's component (or error view)
// returned; braid never interprets it.
type View struct {
	Pattern string
	Content any
	IsError bool
}

// Navigation is the outcome of one completed navigation.
type Navigation struct {
	// Path is the canonical destination path, without query.
	Path string

	// Query is the raw query string.
	Query string

	// Match is the resolved chain.
	Match *router.Match

	// Document is the server document the navigation fetched.
	Document *server.Document

	// Views are the chain's component snapshots, root to leaf. When an
	// error bubbled to a boundary, the boundary's error view is the last
	// entry and the failed subtree is absent.
	Views []View

	// Pending holds the handles for the document's deferred placeholders,
	// keyed by id.
	Pending map[string]*Pending

	// Err is the error a boundary absorbed, nil on a clean navigation.
	Err error
}

// Placeholder resolves a placeholder value from Document.Data to its
// Pending handle.
func (nav *Navigation) Placeholder(value any) (*Pending, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	id, ok := m[deferred.PlaceholderKey].(string)
	if !ok {
		return nil, false
	}
	p, ok := nav.Pending[id]
	return p, ok
}

// Navigator resolves navigations against a route tree. The tree and
// registry are shared read-only; each navigation gets fresh state.
type Navigator struct {
	tree     *router.Tree
	client   DataClient
	registry *hydrate.Registry
	history  History
	envelope *hydrate.Envelope
	logger   *slog.Logger
}

// New creates a navigator. The registry freezes here if the caller has
// not already frozen it alongside the server.
func New(tree *router.Tree, client DataClient, opts ...Option) (*Navigator, error) {
	o := Options{
		Logger:   slog.Default(),
		Registry: hydrate.NewRegistry(),
		History:  NewMemoryHistory(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.Registry.Freeze(); err != nil {
		return nil, err
	}

	n := &Navigator{
		tree:     tree,
		client:   client,
		registry: o.Registry,
		history:  o.History,
		logger:   o.Logger,
	}
	if len(o.EnvelopeKey) > 0 {
		n.envelope = hydrate.NewEnvelope(o.EnvelopeKey)
	}
	return n, nil
}

// Navigate resolves a target path: match, fetch, rehydrate, run client
// loaders root to leaf, snapshot views. Server redirects are followed (up
// to maxRedirects); the final location is what history records.
//
// An error below a client error boundary comes back inside the
// Navigation (boundary view rendered, Err set); an error with no
// boundary, an invalid target, or an unmatched path fails the navigation
// outright.
func (n *Navigator) Navigate(ctx context.Context, target string) (*Navigation, error) {
	nav, err := n.navigate(ctx, target, 0)
	if err != nil {
		return nil, err
	}

	location := nav.Path
	if nav.Query != "" {
		location += "?" + nav.Query
	}
	n.history.Push(location)
	return nav, nil
}

func (n *Navigator) navigate(ctx context.Context, target string, hops int) (*Navigation, error) {
	if hops > maxRedirects {
		return nil, errors.New("nav: redirect loop")
	}

	canon, err := router.CanonicalizeNavPath(target)
	if err != nil {
		return nil, err
	}
	path, query := router.SplitPathAndQuery(canon)

	match, ok := n.tree.Match(path)
	if !ok {
		return nil, &server.NotFoundError{Path: path}
	}

	nc := newNavCtx(ctx, path, query, match.Params, n.logger)
	nav := &Navigation{Path: path, Query: query, Match: match}

	doc, fetchErr := n.client.FetchDocument(ctx, canon)
	if fetchErr == nil {
		if doc.RedirectURL != "" {
			n.logger.Debug("navigation redirected",
				slog.String("from", path),
				slog.String("to", doc.RedirectURL))
			return n.navigate(ctx, doc.RedirectURL, hops+1)
		}
		nav.Document = doc
		nc.doc = doc
		nav.Pending = make(map[string]*Pending, len(doc.Deferred))
		for _, id := range doc.Deferred {
			nav.Pending[id] = newPending(id)
		}
		payload := doc.Context
		if n.envelope != nil && doc.ContextToken != "" {
			payload, fetchErr = n.envelope.Open(doc.ContextToken)
		}
		if fetchErr == nil {
			if err := n.registry.DeserializeAll(payload, nc); err != nil {
				fetchErr = err
			}
		}
	}

	navErr := fetchErr
	failedAt := len(match.Chain) - 1
	var viewNodes []int

	if navErr == nil {
		for i, node := range match.Chain {
			cm := node.Client()
			if cm == nil {
				continue
			}
			var data any
			if cm.Loader != nil {
				data, err = cm.Loader(nc)
				if err != nil {
					navErr = err
					failedAt = i
					break
				}
			}
			if cm.Component != nil {
				nav.Views = append(nav.Views, View{
					Pattern: node.Pattern(),
					Content: cm.Component(nc, data),
				})
				viewNodes = append(viewNodes, i)
			}
		}
	}

	if navErr != nil {
		boundary := n.bubble(match.Chain, failedAt)
		if boundary < 0 {
			return nil, navErr
		}
		n.logger.Warn("navigation error absorbed by boundary",
			slog.String("path", path),
			slog.String("boundary", match.Chain[boundary].Pattern()),
			slog.Any("error", navErr))

		// Views rendered at or below the boundary belong to the failed
		// subtree; the error view replaces them.
		kept := nav.Views[:0]
		for vi, ni := range viewNodes {
			if ni < boundary {
				kept = append(kept, nav.Views[vi])
			}
		}
		nav.Views = append(kept, View{
			Pattern: match.Chain[boundary].Pattern(),
			Content: match.Chain[boundary].Client().ErrorView(nc, navErr),
			IsError: true,
		})
		nav.Err = navErr
	}

	return nav, nil
}

// bubble finds the nearest client error boundary at or above the failing
// node.
func (n *Navigator) bubble(chain []*router.RouteNode, from int) int {
	for i := from; i >= 0; i-- {
		if chain[i].ClientBoundary() {
			return i
		}
	}
	return -1
}

// ResolvePending attaches to the navigation's settle stream and settles
// each Pending handle exactly once. It returns when every deferred has
// settled, the stream ends, or the context is canceled. Navigations
// without deferreds return immediately.
func (n *Navigator) ResolvePending(ctx context.Context, nav *Navigation) error {
	if nav.Document == nil || nav.Document.StreamID == "" || len(nav.Pending) == 0 {
		return nil
	}

	settlements, err := n.client.Settlements(ctx, nav.Document.StreamID)
	if err != nil {
		return err
	}
	for s := range settlements {
		p, ok := nav.Pending[s.ID]
		if !ok {
			n.logger.Debug("settlement for unknown placeholder", slog.String("id", s.ID))
			continue
		}
		if !p.settle(s) {
			n.logger.Debug("duplicate settlement ignored", slog.String("id", s.ID))
		}
	}
	return ctx.Err()
}
