package hydrate

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"

	berrors "github.com/braid-dev/braid/internal/errors"
)

// Key is an unforgeable context key. Identity is pointer identity: two keys
// created with the same name are still distinct, so only code holding the
// key can read or write its value.
type Key struct {
	name string
}

// NewKey creates a context key. The name is for diagnostics only; it does
// not participate in identity.
func NewKey(name string) *Key {
	return &Key{name: name}
}

func (k *Key) String() string {
	return "braid context key: " + k.name
}

// Source is the read side of an execution context. The second return
// distinguishes "never set" from "set to nil": a context never written
// during a request is omitted from the payload, not serialized as null.
type Source interface {
	Value(key any) (any, bool)
}

// Sink is the write side of an execution context.
type Sink interface {
	SetValue(key, value any)
}

// Registration binds a context name to its key and wire codec. Name is the
// field key in the serialized payload; it must be unique per registry.
type Registration struct {
	// Name is the wire-level payload key.
	Name string

	// Key is the execution-context key the value lives under.
	Key *Key

	// Serialize encodes a context value for the wire.
	Serialize func(value any) ([]byte, error)

	// Deserialize decodes a wire payload back into a context value.
	Deserialize func(data []byte) (any, error)
}

// Payload is the serialized context state embedded in a response. Only
// contexts that were set during the request appear; absence is the "not
// set" signal.
type Payload map[string]json.RawMessage

// Registry maps context names to their serialization strategies. It is
// append-only: registrations happen during startup, Freeze is called once
// before the first request, and every later access is read-only. A frozen
// registry is safe for concurrent use without locking.
type Registry struct {
	regs   []Registration
	byName map[string]int
	dupes  []string
	frozen atomic.Bool
}

// NewRegistry creates an empty context registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a context registration. Registering after Freeze panics:
// it is a programming error, the same class as registering an http route
// after ListenAndServe. Duplicate names are collected and reported by
// Freeze so startup shows every conflict at once.
func (r *Registry) Register(reg Registration) {
	if r.frozen.Load() {
		panic(berrors.New("B2002").WithDetail("context %q registered after freeze", reg.Name))
	}
	if reg.Name == "" {
		panic("hydrate: registration needs a name")
	}
	if reg.Key == nil {
		reg.Key = NewKey(reg.Name)
	}
	if reg.Serialize == nil {
		reg.Serialize = json.Marshal
	}
	if reg.Deserialize == nil {
		reg.Deserialize = func(data []byte) (any, error) {
			var v any
			err := json.Unmarshal(data, &v)
			return v, err
		}
	}

	if _, ok := r.byName[reg.Name]; ok {
		r.dupes = append(r.dupes, reg.Name)
		return
	}
	r.byName[reg.Name] = len(r.regs)
	r.regs = append(r.regs, reg)
}

// Freeze seals the registry and reports accumulated registration errors.
// Call it once after all registrations, before serving; it is idempotent.
func (r *Registry) Freeze() error {
	r.frozen.Store(true)
	var errs berrors.List
	for _, name := range r.dupes {
		errs.Add(berrors.New("B2001").
			WithDetail("context %q was registered more than once", name).
			WithSuggestion("Register each context name a single time during startup"))
	}
	return errs.Err()
}

// Frozen reports whether the registry has been sealed.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Lookup returns the registration for a name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Registration{}, false
	}
	return r.regs[i], true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.regs))
	for _, reg := range r.regs {
		names = append(names, reg.Name)
	}
	sort.Strings(names)
	return names
}

// SerializeAll dehydrates the execution context into a payload. Contexts
// without a value in src are skipped; a context set to nil is carried as
// an explicit null, which is a different thing from being absent.
func (r *Registry) SerializeAll(src Source) (Payload, error) {
	payload := make(Payload, len(r.regs))
	for _, reg := range r.regs {
		value, ok := src.Value(reg.Key)
		if !ok {
			continue
		}
		data, err := reg.Serialize(value)
		if err != nil {
			return nil, fmt.Errorf("hydrate: serializing context %q: %w", reg.Name, err)
		}
		payload[reg.Name] = json.RawMessage(data)
	}
	return payload, nil
}

// DeserializeAll rehydrates a payload into a fresh execution context on
// the client. Names the registry does not know are skipped: the payload
// may come from a newer server, and an unknown field is not an error.
func (r *Registry) DeserializeAll(payload Payload, sink Sink) error {
	for name, data := range payload {
		reg, ok := r.Lookup(name)
		if !ok {
			continue
		}
		value, err := reg.Deserialize(data)
		if err != nil {
			return fmt.Errorf("hydrate: deserializing context %q: %w", name, err)
		}
		sink.SetValue(reg.Key, value)
	}
	return nil
}
