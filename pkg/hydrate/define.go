package hydrate

import "encoding/json"

// Context is a typed handle for one registered context: the key plus
// typed read/write accessors. Define creates it and registers the wire
// codec in one step.
type Context[T any] struct {
	name string
	key  *Key
}

// Define registers a JSON-serialized context of type T and returns its
// typed handle. Call during startup, before the registry is frozen:
//
//	var CurrentUser = hydrate.Define[*User](registry, "currentUser")
//
//	// middleware
//	CurrentUser.Set(ctx, user)
//
//	// loader, same request
//	user, ok := CurrentUser.From(ctx)
func Define[T any](r *Registry, name string) *Context[T] {
	key := NewKey(name)
	r.Register(Registration{
		Name: name,
		Key:  key,
		Serialize: func(value any) ([]byte, error) {
			return json.Marshal(value)
		},
		Deserialize: func(data []byte) (any, error) {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	})
	return &Context[T]{name: name, key: key}
}

// Name returns the wire-level payload key.
func (c *Context[T]) Name() string { return c.name }

// Key returns the execution-context key.
func (c *Context[T]) Key() *Key { return c.key }

// Set writes the value into the execution context.
func (c *Context[T]) Set(sink Sink, value T) {
	sink.SetValue(c.key, value)
}

// From reads the value back. ok is false when nothing was set for this
// request.
func (c *Context[T]) From(src Source) (T, bool) {
	raw, ok := src.Value(c.key)
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := raw.(T)
	return v, ok
}

// MustFrom reads the value and panics when it was never set. Use from
// handlers that run below middleware guaranteed to have set it.
func (c *Context[T]) MustFrom(src Source) T {
	v, ok := c.From(src)
	if !ok {
		panic("hydrate: context " + c.name + " not set")
	}
	return v
}
