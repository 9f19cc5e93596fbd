// Package hydrate carries request-scoped context across the server/client
// boundary.
//
// Contexts are registered once at startup against a process-wide registry:
// a wire name, an unforgeable key, and a serialization strategy. During a
// request, middleware and loaders write values under the key; at response
// time the registry dehydrates every value that was set into a payload
// embedded in the response; on the client the same registrations rehydrate
// the payload into the navigation context.
//
//	var registry = hydrate.NewRegistry()
//	var Theme = hydrate.Define[string](registry, "theme")
//
//	// server middleware
//	Theme.Set(ctx, "dark")
//
//	// client, after hydration
//	theme, ok := Theme.From(navCtx)
//
// Absence is meaningful: a context never set during a request is omitted
// from the payload rather than serialized as null.
package hydrate
