package router

import (
	"io/fs"
	"log/slog"
	"path"
	"strings"

	berrors "github.com/braid-dev/braid/internal/errors"
)

// RouteNode is one segment of the route tree. Nodes are immutable after
// Build and safe to share across goroutines.
type RouteNode struct {
	segment string // literal text or parameter name; "" at the root
	kind    Kind
	pattern string // full pattern, e.g. "/blog/[id]"
	srcFile string // anchoring entry inside the route directory
	isDir   bool

	server *ServerModule
	client *ClientModule

	// Module files found by the scanner; Build cross-checks them against
	// the registry.
	serverFiles []string
	clientFiles []string

	children      []*RouteNode // static children in discovery order
	paramChild    *RouteNode
	catchAllChild *RouteNode
}

// Segment returns the literal text (static) or parameter name (dynamic,
// catch-all) this node matches.
func (n *RouteNode) Segment() string { return n.segment }

// Kind returns the node's match behavior.
func (n *RouteNode) Kind() Kind { return n.kind }

// Pattern returns the full route pattern down to this node.
func (n *RouteNode) Pattern() string { return n.pattern }

// SourceFile returns the route-directory entry that produced this node.
func (n *RouteNode) SourceFile() string { return n.srcFile }

// Server returns the node's server module, or nil.
func (n *RouteNode) Server() *ServerModule { return n.server }

// Client returns the node's client module, or nil.
func (n *RouteNode) Client() *ClientModule { return n.client }

// Middleware returns the node's middleware, or nil.
func (n *RouteNode) Middleware() []Middleware {
	if n.server == nil {
		return nil
	}
	return n.server.Middleware
}

// Routable reports whether the node can terminate a match: it has a
// loader, an action, or a component of its own. Directories that only
// shape the tree (or only carry middleware and boundaries) are prefix-only
// and never terminate.
func (n *RouteNode) Routable() bool {
	if n.server != nil && (n.server.Loader != nil || n.server.Action != nil) {
		return true
	}
	if n.client != nil && n.client.Component != nil {
		return true
	}
	return false
}

// Boundary reports whether the node catches server-side errors for its
// subtree.
func (n *RouteNode) Boundary() bool {
	return n.server != nil && n.server.ErrorHandler != nil
}

// ClientBoundary reports whether the node catches navigation errors for
// its subtree.
func (n *RouteNode) ClientBoundary() bool {
	return n.client != nil && n.client.ErrorView != nil
}

// findChild returns the static child with an exact segment match.
func (n *RouteNode) findChild(segment string) *RouteNode {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

// Tree is an immutable route tree. Build returns a new tree each time; a
// running server swaps whole trees, never mutates one.
type Tree struct {
	root   *RouteNode
	routes []*RouteNode
}

// Root returns the tree's root node.
func (t *Tree) Root() *RouteNode { return t.root }

// Routes returns every routable node in discovery order.
func (t *Tree) Routes() []*RouteNode { return t.routes }

// BuildOption configures Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

// Build scans a route directory and joins it with the registered modules
// into an immutable tree. It fails fast: every problem found in the layout
// or the registrations is collected and returned as one error, and no tree
// is produced.
func Build(fsys fs.FS, reg *Registry, opts ...BuildOption) (*Tree, error) {
	scanned, err := Scan(fsys)
	if err != nil {
		return nil, berrors.Newf(berrors.CategoryRoutes, "scanning route directory: %v", err).Wrap(err)
	}
	return BuildScanned(scanned, reg, opts...)
}

// BuildScanned builds a tree from an already-scanned layout. The dev
// server uses it to rebuild without touching the module registry.
func BuildScanned(scanned []ScannedRoute, reg *Registry, opts ...BuildOption) (*Tree, error) {
	o := buildOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if reg == nil {
		reg = NewRegistry()
	}

	b := &builder{
		reg:   reg,
		root:  &RouteNode{kind: KindStatic, pattern: "/", isDir: true},
		nodes: make(map[string]*RouteNode, len(scanned)),
		skip:  make(map[string]bool),
	}

	for _, e := range scanned {
		b.insert(e)
	}
	b.join()
	b.checkUnregistered(b.root)
	b.checkShadows(b.root, make(map[string]*RouteNode))

	if err := b.errs.Err(); err != nil {
		return nil, err
	}

	tree := &Tree{root: b.root}
	collectRoutes(b.root, &tree.routes)
	o.logger.Debug("route tree built",
		slog.Int("routes", len(tree.routes)),
		slog.Int("entries", len(scanned)))
	return tree, nil
}

// builder accumulates nodes and errors during one Build pass.
type builder struct {
	reg   *Registry
	root  *RouteNode
	nodes map[string]*RouteNode // route path → node
	skip  map[string]bool       // subtrees poisoned by an earlier error
	errs  berrors.List
}

// insert places one scanned entry into the tree. Entries arrive parents
// first, so only the last segment needs classification.
func (b *builder) insert(e ScannedRoute) {
	if e.Path == "/" {
		b.nodes["/"] = b.root
		b.anchor(b.root, e)
		return
	}

	parentPath := parentRoutePath(e.Path)
	if b.skip[parentPath] {
		b.skip[e.Path] = true
		return
	}
	parent := b.nodes[parentPath]
	if parent == nil {
		b.skip[e.Path] = true
		return
	}

	if parent.kind == KindCatchAll {
		b.errs.Add(berrors.New("B1004").WithFile(e.File).
			WithDetail("%s sits under the catch-all %s, which already consumes every remaining segment", e.Path, parent.pattern).
			WithSuggestion("Move %s out of %s, or replace the catch-all with named segments", path.Base(e.File), parent.pattern))
		b.skip[e.Path] = true
		return
	}

	seg, err := Classify(lastSegment(e.Path))
	if err != nil {
		b.errs.Add(berrors.New("B1001").WithFile(e.File).
			WithDetail("%v", err).
			WithSuggestion("Use a literal name, [name], [...] or [...name]"))
		b.skip[e.Path] = true
		return
	}

	var node *RouteNode
	switch seg.Kind {
	case KindIndex:
		b.errs.Add(berrors.New("B1008").WithFile(e.File).
			WithSuggestion("Put the handlers in %s instead", path.Dir(e.File)))
		b.skip[e.Path] = true
		return

	case KindStatic:
		node = parent.findChild(seg.Name)
		if node == nil {
			node = &RouteNode{
				segment: seg.Name,
				kind:    KindStatic,
				pattern: childPattern(parent.pattern, seg.Raw),
			}
			parent.children = append(parent.children, node)
		}

	case KindDynamic:
		if existing := parent.paramChild; existing != nil {
			if existing.segment != seg.Name {
				b.errs.Add(berrors.New("B1003").WithFile(e.File).
					WithDetail("[%s] conflicts with [%s] from %s", seg.Name, existing.segment, existing.srcFile).
					WithSuggestion("Keep a single dynamic segment per directory"))
				b.skip[e.Path] = true
				return
			}
			node = existing
		} else {
			node = &RouteNode{
				segment: seg.Name,
				kind:    KindDynamic,
				pattern: childPattern(parent.pattern, seg.Raw),
			}
			parent.paramChild = node
		}

	case KindCatchAll:
		if existing := parent.catchAllChild; existing != nil {
			if existing.segment != seg.Name {
				b.errs.Add(berrors.New("B1004").WithFile(e.File).
					WithDetail("a second catch-all conflicts with %s from %s", existing.pattern, existing.srcFile).
					WithSuggestion("Keep a single catch-all per directory"))
				b.skip[e.Path] = true
				return
			}
			node = existing
		} else {
			node = &RouteNode{
				segment: seg.Name,
				kind:    KindCatchAll,
				pattern: childPattern(parent.pattern, seg.Raw),
			}
			parent.catchAllChild = node
		}
	}

	node.isDir = node.isDir || e.IsDir
	b.nodes[e.Path] = node
	b.anchor(node, e)
}

// anchor records the entry's module files on its node and reports
// duplicate anchors for the same path.
func (b *builder) anchor(n *RouteNode, e ScannedRoute) {
	if n.srcFile == "" {
		n.srcFile = e.File
	}
	if len(e.ServerFiles) > 1 {
		b.errs.Add(berrors.New("B1002").WithFile(e.ServerFiles[1]).
			WithDetail("server modules for %s: %s", e.Path, strings.Join(e.ServerFiles, ", ")).
			WithSuggestion("Keep a single module file per route"))
	}
	if len(e.ClientFiles) > 1 {
		b.errs.Add(berrors.New("B1002").WithFile(e.ClientFiles[1]).
			WithDetail("client modules for %s: %s", e.Path, strings.Join(e.ClientFiles, ", ")).
			WithSuggestion("Keep a single module file per route"))
	}
	n.serverFiles = append(n.serverFiles, e.ServerFiles...)
	n.clientFiles = append(n.clientFiles, e.ClientFiles...)
}

// join attaches registered modules to their nodes and reports
// registrations that nothing in the layout backs.
func (b *builder) join() {
	for _, rp := range b.reg.serverPaths() {
		node := b.nodes[rp]
		switch {
		case node == nil:
			if !b.skip[rp] {
				b.errs.Add(berrors.New("B1005").
					WithDetail("server module registered for %s, but the route directory has no such entry", rp).
					WithSuggestion("Create the route, or remove the registration"))
			}
		case len(node.serverFiles) == 0:
			b.errs.Add(berrors.New("B1005").WithFile(node.srcFile).
				WithDetail("server module registered for %s, but %s has no %s", rp, node.srcFile, ServerFile).
				WithSuggestion("Add %s, or remove the registration", ServerFile))
		default:
			node.server = b.reg.servers[rp]
		}
	}

	for _, rp := range b.reg.clientPaths() {
		node := b.nodes[rp]
		switch {
		case node == nil:
			if !b.skip[rp] {
				b.errs.Add(berrors.New("B1005").
					WithDetail("client module registered for %s, but the route directory has no such entry", rp).
					WithSuggestion("Create the route, or remove the registration"))
			}
		case len(node.clientFiles) == 0:
			b.errs.Add(berrors.New("B1005").WithFile(node.srcFile).
				WithDetail("client module registered for %s, but %s has no %s", rp, node.srcFile, ClientFile).
				WithSuggestion("Add %s, or remove the registration", ClientFile))
		default:
			node.client = b.reg.clients[rp]
		}
	}

	for _, rp := range b.reg.dupes {
		b.errs.Add(berrors.New("B1002").
			WithDetail("%s was registered more than once", rp).
			WithSuggestion("Register each route path a single time"))
	}
}

// checkUnregistered reports module files the registry never claimed.
// route.go demands a server registration and page.go a client one;
// index.go and colocated files accept either.
func (b *builder) checkUnregistered(n *RouteNode) {
	strictServer := false
	for _, f := range n.serverFiles {
		if path.Base(f) == ServerFile {
			strictServer = true
		}
	}
	strictClient := false
	for _, f := range n.clientFiles {
		if path.Base(f) == ClientFile {
			strictClient = true
		}
	}

	switch {
	case strictServer && n.server == nil:
		b.errs.Add(berrors.New("B1006").WithFile(n.serverFiles[0]).
			WithDetail("no server module registered for %s", n.pattern).
			WithSuggestion("Register it: reg.Server(%q, ...)", n.pattern))
	case strictClient && n.client == nil:
		b.errs.Add(berrors.New("B1006").WithFile(n.clientFiles[0]).
			WithDetail("no client module registered for %s", n.pattern).
			WithSuggestion("Register it: reg.Client(%q, ...)", n.pattern))
	case len(n.serverFiles)+len(n.clientFiles) > 0 && n.server == nil && n.client == nil:
		b.errs.Add(berrors.New("B1006").WithFile(n.srcFile).
			WithDetail("no module registered for %s", n.pattern).
			WithSuggestion("Register it: reg.Route(%q, ...)", n.pattern))
	}

	for _, c := range n.children {
		b.checkUnregistered(c)
	}
	if n.paramChild != nil {
		b.checkUnregistered(n.paramChild)
	}
	if n.catchAllChild != nil {
		b.checkUnregistered(n.catchAllChild)
	}
}

// checkShadows rejects a parameter name bound twice on one root-to-leaf
// path. Parameters share a flat namespace per request; the inner binding
// would silently replace the outer one.
func (b *builder) checkShadows(n *RouteNode, bound map[string]*RouteNode) {
	added := false
	if n.kind == KindDynamic || n.kind == KindCatchAll {
		if prev, ok := bound[n.segment]; ok {
			b.errs.Add(berrors.New("B1007").WithFile(n.srcFile).
				WithDetail("parameter %q in %s is already bound by %s", n.segment, n.pattern, prev.pattern).
				WithSuggestion("Rename one of the segments"))
		} else {
			bound[n.segment] = n
			added = true
		}
	}

	for _, c := range n.children {
		b.checkShadows(c, bound)
	}
	if n.paramChild != nil {
		b.checkShadows(n.paramChild, bound)
	}
	if n.catchAllChild != nil {
		b.checkShadows(n.catchAllChild, bound)
	}

	if added {
		delete(bound, n.segment)
	}
}

func collectRoutes(n *RouteNode, out *[]*RouteNode) {
	if n.Routable() {
		*out = append(*out, n)
	}
	for _, c := range n.children {
		collectRoutes(c, out)
	}
	if n.paramChild != nil {
		collectRoutes(n.paramChild, out)
	}
	if n.catchAllChild != nil {
		collectRoutes(n.catchAllChild, out)
	}
}

// parentRoutePath returns the parent of a route path: "/a/b" → "/a",
// "/a" → "/".
func parentRoutePath(rp string) string {
	idx := strings.LastIndex(rp, "/")
	if idx <= 0 {
		return "/"
	}
	return rp[:idx]
}

// lastSegment returns the final component of a route path.
func lastSegment(rp string) string {
	return rp[strings.LastIndex(rp, "/")+1:]
}

// childPattern joins a parent pattern with a raw segment.
func childPattern(parent, raw string) string {
	if parent == "/" {
		return "/" + raw
	}
	return parent + "/" + raw
}
