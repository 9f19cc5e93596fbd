// Package deferred streams loader values that are not ready at response
// time.
//
// A loader that wants to answer fast returns a result whose slow fields
// are *Deferred values. Collect splits the result into an immediate view
// (pending fields become id-tagged placeholders) and the set of pending
// values; the response ships immediately, and a Stream delivers settle
// events over SSE as each value resolves or rejects — first settled,
// first sent.
//
// A rejection is scoped to its one value: the consuming UI handles it in
// place, siblings and the already-sent page are untouched.
package deferred
