// Package server executes matched route chains over HTTP.
//
// A request flows: canonicalize → match → pipeline → document → render.
// The pipeline composes the matched chain's middleware root to leaf ahead
// of the leaf's loader (reads) or action (writes), with short-circuit and
// error-boundary semantics. Loader results may contain deferred values;
// the immediate document ships at once and the settle stream delivers the
// rest.
//
// The server shares only read-only state across requests: the route tree,
// the frozen context registry, and the pipeline itself. Everything
// request-scoped lives on the execution context and dies with the
// request.
package server
