package router

import "strings"

// Match is the result of resolving a path against the tree: the chain of
// nodes from the root to the leaf, and the parameters bound on the way.
// A match holds no request state and executes nothing; the pipeline does
// that.
type Match struct {
	// Chain lists the matched nodes root to leaf, inclusive.
	Chain []*RouteNode

	// Params holds the bound route parameters.
	Params *ParamBag
}

// Leaf returns the terminal node of the match.
func (m *Match) Leaf() *RouteNode {
	return m.Chain[len(m.Chain)-1]
}

// Pattern returns the leaf's route pattern.
func (m *Match) Pattern() string {
	return m.Leaf().Pattern()
}

// Match resolves a canonicalized path to a route.
//
// Candidates are tried most-specific first at every step: a literal child,
// then the dynamic child, then the catch-all. A branch that cannot consume
// the rest of the path is abandoned and its parameter bindings rolled
// back, so an earlier dynamic segment never blocks a later catch-all.
//
// A node terminates the match only when the path is exhausted at a
// routable node, or a catch-all absorbs the remainder. The remainder bound
// by a catch-all may be empty: /files matches /files/[...] with "".
func (t *Tree) Match(path string) (*Match, bool) {
	segments := splitPath(path)
	chain := make([]*RouteNode, 0, len(segments)+2)
	params := make(map[string]string, 4)

	state := matchState{params: params, chain: chain}
	leaf := state.descend(t.root, segments)
	if leaf == nil {
		return nil, false
	}
	return &Match{
		Chain:  state.chain,
		Params: newParamBag(state.params, state.catchKey),
	}, true
}

// matchState carries the accumulating chain and bindings through the
// recursive descent.
type matchState struct {
	params   map[string]string
	chain    []*RouteNode
	catchKey string
}

func (s *matchState) descend(n *RouteNode, segments []string) *RouteNode {
	s.chain = append(s.chain, n)
	depth := len(s.chain)

	if len(segments) == 0 {
		if n.Routable() {
			return n
		}
		// An adjacent catch-all still matches with an empty remainder.
		if ca := n.catchAllChild; ca != nil && ca.Routable() {
			s.bindCatchAll(ca, "")
			return ca
		}
		s.chain = s.chain[:depth-1]
		return nil
	}

	head, rest := segments[0], segments[1:]

	if child := n.findChild(head); child != nil {
		if leaf := s.descend(child, rest); leaf != nil {
			return leaf
		}
	}

	if pc := n.paramChild; pc != nil {
		s.params[pc.segment] = head
		if leaf := s.descend(pc, rest); leaf != nil {
			return leaf
		}
		delete(s.params, pc.segment)
	}

	if ca := n.catchAllChild; ca != nil && ca.Routable() {
		s.bindCatchAll(ca, strings.Join(segments, "/"))
		return ca
	}

	s.chain = s.chain[:depth-1]
	return nil
}

func (s *matchState) bindCatchAll(ca *RouteNode, remainder string) {
	s.params[ca.segment] = remainder
	s.catchKey = ca.segment
	s.chain = append(s.chain, ca)
}

// splitPath breaks a path into segments, tolerating leading and trailing
// slashes.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
