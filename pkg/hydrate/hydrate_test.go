package hydrate

import (
	"encoding/json"
	"strings"
	"testing"

	berrors "github.com/braid-dev/braid/internal/errors"
)

// fakeCtx is a minimal execution context for registry tests.
type fakeCtx struct {
	values map[any]any
}

func newFakeCtx() *fakeCtx {
	return &fakeCtx{values: make(map[any]any)}
}

func (c *fakeCtx) SetValue(key, value any) {
	c.values[key] = value
}

func (c *fakeCtx) Value(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

func TestKeysAreUnforgeable(t *testing.T) {
	a := NewKey("theme")
	b := NewKey("theme")
	if a == b {
		t.Fatal("two keys with the same name must be distinct")
	}

	ctx := newFakeCtx()
	ctx.SetValue(a, "dark")
	if _, ok := ctx.Value(b); ok {
		t.Fatal("value stored under one key must not be readable via another")
	}
}

func TestSerializeAllSkipsUnsetContexts(t *testing.T) {
	reg := NewRegistry()
	theme := Define[string](reg, "theme")
	Define[int](reg, "visits")
	if err := reg.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	ctx := newFakeCtx()
	theme.Set(ctx, "dark")

	payload, err := reg.SerializeAll(ctx)
	if err != nil {
		t.Fatalf("SerializeAll: %v", err)
	}
	if _, ok := payload["theme"]; !ok {
		t.Error("set context missing from payload")
	}
	if _, ok := payload["visits"]; ok {
		t.Error("unset context must be absent, not present")
	}
}

func TestSerializeAllKeepsExplicitNil(t *testing.T) {
	reg := NewRegistry()
	user := Define[*struct{ Name string }](reg, "user")
	if err := reg.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	ctx := newFakeCtx()
	user.Set(ctx, nil)

	payload, err := reg.SerializeAll(ctx)
	if err != nil {
		t.Fatalf("SerializeAll: %v", err)
	}
	raw, ok := payload["user"]
	if !ok {
		t.Fatal("explicitly-set nil must appear in the payload")
	}
	if string(raw) != "null" {
		t.Errorf("payload = %s, want null", raw)
	}
}

func TestRoundTrip(t *testing.T) {
	type user struct {
		Name  string `json:"name"`
		Admin bool   `json:"admin"`
	}

	reg := NewRegistry()
	currentUser := Define[user](reg, "currentUser")
	theme := Define[string](reg, "theme")
	if err := reg.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	serverCtx := newFakeCtx()
	currentUser.Set(serverCtx, user{Name: "ada", Admin: true})
	theme.Set(serverCtx, "dark")

	payload, err := reg.SerializeAll(serverCtx)
	if err != nil {
		t.Fatalf("SerializeAll: %v", err)
	}

	// The payload crosses the wire as JSON; simulate that hop.
	wire, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var received Payload
	if err := json.Unmarshal(wire, &received); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	clientCtx := newFakeCtx()
	if err := reg.DeserializeAll(received, clientCtx); err != nil {
		t.Fatalf("DeserializeAll: %v", err)
	}

	gotUser, ok := currentUser.From(clientCtx)
	if !ok {
		t.Fatal("currentUser not rehydrated")
	}
	if gotUser != (user{Name: "ada", Admin: true}) {
		t.Errorf("currentUser = %+v", gotUser)
	}
	gotTheme, ok := theme.From(clientCtx)
	if !ok || gotTheme != "dark" {
		t.Errorf("theme = %q, ok = %v", gotTheme, ok)
	}
}

func TestDeserializeAllIgnoresUnknownNames(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	ctx := newFakeCtx()
	err := reg.DeserializeAll(Payload{"ghost": json.RawMessage(`1`)}, ctx)
	if err != nil {
		t.Fatalf("unknown names must be skipped, got %v", err)
	}
	if len(ctx.values) != 0 {
		t.Error("nothing should have been set")
	}
}

func TestDuplicateRegistrationFailsFreeze(t *testing.T) {
	reg := NewRegistry()
	Define[string](reg, "theme")
	Define[int](reg, "theme")

	err := reg.Freeze()
	if err == nil {
		t.Fatal("Freeze should report the duplicate")
	}
	be := berrors.AsList(err)
	if len(be) != 1 || be[0].Code != "B2001" {
		t.Errorf("want one B2001, got %v", err)
	}
}

func TestRegisterAfterFreezePanics(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Freeze(); err != nil {
		t.Fatalf("Freeze: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Register after Freeze must panic")
		}
	}()
	Define[string](reg, "late")
}

func TestNames(t *testing.T) {
	reg := NewRegistry()
	Define[string](reg, "zeta")
	Define[string](reg, "alpha")

	got := reg.Names()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("Names() = %v", got)
	}
}

func TestMustFromPanicsWhenUnset(t *testing.T) {
	reg := NewRegistry()
	theme := Define[string](reg, "theme")

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("MustFrom must panic for an unset context")
		}
		if !strings.Contains(r.(string), "theme") {
			t.Errorf("panic message should name the context: %v", r)
		}
	}()
	theme.MustFrom(newFakeCtx())
}
