package middleware

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/braid-dev/braid/pkg/router"
	"github.com/braid-dev/braid/pkg/server"
)

// Default tracer name for braid applications.
const defaultTracerName = "braid"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "braid").
	TracerName string

	// Filter determines which requests to trace. Return false to skip.
	// Nil traces everything.
	Filter func(ctx server.Ctx) bool

	// AttributeExtractor adds custom attributes to every request span.
	AttributeExtractor func(ctx server.Ctx) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) { c.TracerName = name }
}

// WithTraceFilter sets a per-request trace filter.
func WithTraceFilter(filter func(ctx server.Ctx) bool) OTelOption {
	return func(c *OTelConfig) { c.Filter = filter }
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx server.Ctx) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) { c.AttributeExtractor = extractor }
}

// OpenTelemetry creates middleware that opens a span around the rest of
// the chain: the route's own middleware, the loader or action, and any
// boundary handling all run inside it.
//
// The span context replaces ctx.StdContext(), so downstream handlers and
// deferred producers that derive from it join the trace automatically.
// Errors are recorded on the span; redirects count as success.
//
// The tracer comes from the global provider. Configure it in main()
// before starting the server:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) router.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	return router.MiddlewareFunc(func(ctx server.Ctx, next func() error) error {
		if config.Filter != nil && !config.Filter(ctx) {
			return next()
		}

		attrs := []attribute.KeyValue{
			attribute.String("http.request.method", ctx.Method()),
			attribute.String("url.path", ctx.Path()),
		}
		if route := ctx.RoutePattern(); route != "" {
			attrs = append(attrs, attribute.String("braid.route", route))
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(ctx)...)
		}

		spanCtx, span := config.tracer.Start(
			ctx.StdContext(),
			spanName(ctx),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		ctx.SetStdContext(spanCtx)

		err := next()

		var redirect *server.RedirectError
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
		case errors.As(err, &redirect):
			span.SetAttributes(attribute.String("braid.redirect", redirect.URL))
			span.SetStatus(codes.Ok, "")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("http.response.status_code", statusFor(ctx, err)))

		return err
	})
}

// SpanFromCtx returns the span active on the request context. Handlers
// use it to attach attributes mid-request:
//
//	middleware.SpanFromCtx(ctx).SetAttributes(attribute.Int("rows", n))
func SpanFromCtx(ctx server.Ctx) trace.Span {
	return trace.SpanFromContext(ctx.StdContext())
}

func spanName(ctx server.Ctx) string {
	route := ctx.RoutePattern()
	if route == "" {
		route = ctx.Path()
	}
	return fmt.Sprintf("%s %s", ctx.Method(), route)
}

func statusFor(ctx server.Ctx, err error) int {
	if err == nil {
		return ctx.StatusCode()
	}
	var redirect *server.RedirectError
	if errors.As(err, &redirect) {
		return redirect.Status
	}
	return server.StatusOf(err)
}
