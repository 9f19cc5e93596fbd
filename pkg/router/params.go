package router

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ParamBag holds the route parameters bound by a match. It is immutable:
// reads are safe from any goroutine.
type ParamBag struct {
	values   map[string]string
	catchKey string // name bound by a catch-all, "" when none
}

// newParamBag wraps bound values. The map is owned by the bag afterwards.
func newParamBag(values map[string]string, catchKey string) *ParamBag {
	return &ParamBag{values: values, catchKey: catchKey}
}

// EmptyParams is the bag for routes without parameters.
func EmptyParams() *ParamBag {
	return &ParamBag{}
}

// Get returns the value bound to name, or "".
func (b *ParamBag) Get(name string) string {
	return b.values[name]
}

// Lookup returns the value bound to name and whether it was bound at all.
// A catch-all can legitimately bind the empty string, so presence and
// value are separate questions.
func (b *ParamBag) Lookup(name string) (string, bool) {
	v, ok := b.values[name]
	return v, ok
}

// Has reports whether name was bound.
func (b *ParamBag) Has(name string) bool {
	_, ok := b.values[name]
	return ok
}

// Len returns the number of bound parameters.
func (b *ParamBag) Len() int {
	return len(b.values)
}

// Names returns the bound parameter names in sorted order.
func (b *ParamBag) Names() []string {
	names := make([]string, 0, len(b.values))
	for name := range b.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catch returns the catch-all remainder split into segments, and whether a
// catch-all was bound. An empty remainder yields an empty, non-nil slice.
func (b *ParamBag) Catch() ([]string, bool) {
	if b.catchKey == "" {
		return nil, false
	}
	raw := b.values[b.catchKey]
	if raw == "" {
		return []string{}, true
	}
	return strings.Split(raw, "/"), true
}

// Map returns a copy of the bound values.
func (b *ParamBag) Map() map[string]string {
	out := make(map[string]string, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Decode populates a struct from the bag. The target must be a pointer to
// a struct with `param` tags:
//
//	type PostParams struct {
//	    ID   string   `param:"id"`
//	    Rest []string `param:"*"`
//	}
//
// Supported field types are string, the integer and float kinds, bool, and
// []string for catch-all segments.
func (b *ParamBag) Decode(target any) error {
	if target == nil {
		return nil
	}

	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("target must be a pointer, got %s", v.Kind())
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must be a pointer to struct, got pointer to %s", v.Kind())
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("param")
		if name == "" {
			continue
		}

		value, ok := b.values[name]
		if !ok {
			continue
		}

		fieldValue := v.Field(i)
		if !fieldValue.CanSet() {
			continue
		}

		if err := setField(fieldValue, value); err != nil {
			return fmt.Errorf("decoding param %q: %w", name, err)
		}
	}

	return nil
}

// setField converts a bound string into the field's type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer: %s", value)
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %s", value)
		}
		field.SetFloat(n)

	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		field.SetBool(v)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice element type: %s", field.Type().Elem().Kind())
		}
		// Catch-all remainders split on "/"; empty remainder, empty slice.
		parts := []string{}
		if value != "" {
			parts = strings.Split(value, "/")
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported type: %s", field.Kind())
	}

	return nil
}
