// Package router implements Braid's file-based route tree.
//
// A route directory maps one-to-one onto a tree of path segments:
//
//	app/routes/
//	├── route.go            server module for /
//	├── page.go             client module for /
//	├── blog/
//	│   ├── route.go        server module for /blog (middleware covers the subtree)
//	│   ├── page.go         client module for /blog
//	│   ├── create.go       colocated literal route /blog/create
//	│   └── [id]/
//	│       ├── route.go    server module for /blog/[id]
//	│       └── page.go     client module for /blog/[id]
//	└── files/
//	    └── [...]/
//	        └── route.go    catch-all /files/[...]
//
// Directory and file names classify into segment kinds: a literal is
// static, [name] binds one segment, [...] binds the whole remainder
// (possibly empty), and index (or route.go/page.go inside a directory)
// is the directory's own handler.
//
// Go loads no code at runtime, so module values are registered up front
// and joined with the scanned layout:
//
//	reg := router.NewRegistry()
//	reg.Server("/blog/[id]", &router.ServerModule{Loader: loadPost})
//	reg.Client("/blog/[id]", &router.ClientModule{Component: postView})
//
//	tree, err := router.Build(os.DirFS("app/routes"), reg)
//
// Build validates everything in one pass — malformed names, duplicate
// routes, conflicting dynamic siblings, catch-alls with children, reused
// parameter names, and registrations that do not line up with the layout —
// and returns the full list of problems as a single error.
//
// Matching resolves a canonicalized path to a chain of nodes, root to
// leaf, with static children preferred over dynamic over catch-all, and
// backtracking between them:
//
//	m, ok := tree.Match("/blog/42")
//	// m.Params.Get("id") == "42", m.Pattern() == "/blog/[id]"
//
// Trees are immutable; the matcher allocates per call and shares nothing,
// so one tree serves every request concurrently.
package router
