package router

// Manifest is a serializable summary of the route tree. The dev CLI prints
// it and the client navigator bootstraps from it.
type Manifest struct {
	Routes []ManifestRoute `json:"routes"`
}

// ManifestRoute describes one route with modules attached.
type ManifestRoute struct {
	// Pattern is the route pattern, e.g. "/blog/[id]".
	Pattern string `json:"pattern"`

	// Kind is how the route terminates: static, dynamic, catchAll, index
	// for a directory's own handler, or prefixOnly for middleware- and
	// boundary-only directories.
	Kind string `json:"kind"`

	// Params lists the parameter names bound on the way to this route.
	Params []string `json:"params,omitempty"`

	HasLoader      bool `json:"hasLoader,omitempty"`
	HasAction      bool `json:"hasAction,omitempty"`
	HasComponent   bool `json:"hasComponent,omitempty"`
	HasMiddleware  bool `json:"hasMiddleware,omitempty"`
	ErrorBoundary  bool `json:"errorBoundary,omitempty"`
	ClientBoundary bool `json:"clientBoundary,omitempty"`
}

// Manifest summarizes every node that carries a module. Pure-structure
// directories are omitted.
func (t *Tree) Manifest() *Manifest {
	m := &Manifest{}
	appendManifest(t.root, nil, m)
	return m
}

func appendManifest(n *RouteNode, params []string, m *Manifest) {
	if n.kind == KindDynamic || n.kind == KindCatchAll {
		params = append(params, n.segment)
	}

	if n.server != nil || n.client != nil {
		route := ManifestRoute{
			Pattern:        n.pattern,
			Kind:           manifestKind(n),
			Params:         append([]string(nil), params...),
			ErrorBoundary:  n.Boundary(),
			ClientBoundary: n.ClientBoundary(),
		}
		if n.server != nil {
			route.HasLoader = n.server.Loader != nil
			route.HasAction = n.server.Action != nil
			route.HasMiddleware = len(n.server.Middleware) > 0
		}
		if n.client != nil {
			route.HasComponent = n.client.Component != nil
		}
		m.Routes = append(m.Routes, route)
	}

	for _, c := range n.children {
		appendManifest(c, params, m)
	}
	if n.paramChild != nil {
		appendManifest(n.paramChild, params, m)
	}
	if n.catchAllChild != nil {
		appendManifest(n.catchAllChild, params, m)
	}
}

func manifestKind(n *RouteNode) string {
	if !n.Routable() {
		return "prefixOnly"
	}
	switch n.kind {
	case KindCatchAll:
		return KindCatchAll.String()
	case KindDynamic:
		return KindDynamic.String()
	}
	if n.isDir {
		return KindIndex.String()
	}
	return KindStatic.String()
}
