// Package middleware provides pipeline middleware for braid servers:
// Prometheus metrics, OpenTelemetry tracing, panic recovery, and request
// IDs.
//
// Everything here implements router.Middleware, so it composes the same
// way route-level middleware does. Install globally:
//
//	srv, err := server.New(tree,
//	    server.WithMiddleware(
//	        middleware.Recover(),
//	        middleware.RequestID(),
//	        middleware.Prometheus(),
//	        middleware.OpenTelemetry(),
//	    ),
//	    server.WithMetricsHandler(promhttp.Handler()),
//	)
//
// or per subtree via ServerModule.Middleware.
package middleware
