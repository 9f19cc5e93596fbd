package router

// Middleware processes requests before the leaf loader or action runs.
type Middleware interface {
	// Handle processes the request and decides whether to continue.
	// Return an error to stop the chain and report a failure.
	// Return nil without calling next to stop the chain after staging a
	// response directly (ctx.Text, ctx.JSON, or a bare status).
	Handle(ctx Ctx, next func() error) error
}

// MiddlewareFunc is a function adapter for Middleware.
type MiddlewareFunc func(ctx Ctx, next func() error) error

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(ctx Ctx, next func() error) error {
	return f(ctx, next)
}

// Compose builds a handler chain from middleware and a final handler.
// Middleware executes in slice order, with the handler at the end.
func Compose(ctx Ctx, mw []Middleware, handler func() error) error {
	if len(mw) == 0 {
		return handler()
	}

	// Build chain from end to start.
	chain := handler
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		next := chain
		chain = func() error {
			return m.Handle(ctx, next)
		}
	}

	return chain()
}

// Chain combines multiple middleware into one, preserving order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(ctx Ctx, next func() error) error {
		return Compose(ctx, middleware, next)
	})
}

// Skip bypasses mw when the condition holds.
func Skip(condition func(ctx Ctx) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(ctx Ctx, next func() error) error {
		if condition(ctx) {
			return next()
		}
		return mw.Handle(ctx, next)
	})
}

// Only runs mw exclusively when the condition holds.
func Only(condition func(ctx Ctx) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(ctx Ctx, next func() error) error {
		if !condition(ctx) {
			return next()
		}
		return mw.Handle(ctx, next)
	})
}
