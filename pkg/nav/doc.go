// Package nav drives client-side navigation over the same route tree the
// server pipeline executes.
//
// A navigation resolves the target path against the tree, fetches the
// server document over the data endpoint, rehydrates the serialized
// context payload, runs client loaders root to leaf, and produces view
// snapshots from the chain's components. Client-side errors bubble to the
// nearest ancestor error view, mirroring the server's boundary rules.
//
// Deferred placeholders in the document come back as Pending handles;
// ResolvePending attaches to the settle stream and settles each handle
// exactly once.
//
// The package renders nothing and touches no DOM: views are opaque
// snapshots for the UI layer, and History is a seam the embedder backs
// with the real browser history.
package nav
