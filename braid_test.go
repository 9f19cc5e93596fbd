package braid

import (
	"errors"
	"testing"
)

func TestNotFoundUnwraps(t *testing.T) {
	err := NotFound("/missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("NotFound should unwrap to ErrNotFound, got %v", err)
	}
}

func TestRoutesRegistersModules(t *testing.T) {
	reg := Routes().
		Server("/", &ServerModule{Loader: func(ctx Ctx) (any, error) { return "home", nil }}).
		Client("/", &ClientModule{Component: func(ctx ClientCtx, data any) any { return "home" }})
	if reg == nil {
		t.Fatal("nil registry")
	}
}

func TestDefine(t *testing.T) {
	reg := NewHydrateRegistry()
	theme := Define[string](reg, "theme")
	if theme.Name() != "theme" {
		t.Errorf("Name = %q", theme.Name())
	}
}
