package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: &NotFoundError{Path: "/x"}, want: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("matching: %w", &NotFoundError{Path: "/x"}), want: http.StatusNotFound},
		{name: "handler error", err: Expose(http.StatusConflict, "taken"), want: http.StatusConflict},
		{name: "handler error without status", err: NewHandlerError(0, errors.New("x")), want: http.StatusInternalServerError},
		{name: "method not allowed", err: NewHandlerError(http.StatusMethodNotAllowed, ErrMethodNotAllowed), want: http.StatusMethodNotAllowed},
		{name: "plain error", err: errors.New("db down"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessageShielding(t *testing.T) {
	internal := NewHandlerError(http.StatusInternalServerError, errors.New("pg: password authentication failed"))
	if got := PublicMessageOf(internal); got != "Internal Server Error" {
		t.Errorf("internal error leaked: %q", got)
	}

	exposed := Expose(http.StatusConflict, "that name is taken")
	if got := PublicMessageOf(exposed); got != "that name is taken" {
		t.Errorf("exposed message lost: %q", got)
	}

	if got := PublicMessageOf(errors.New("raw")); got != "Internal Server Error" {
		t.Errorf("plain error leaked: %q", got)
	}
}

func TestHandlerErrorUnwraps(t *testing.T) {
	cause := errors.New("cause")
	he := NewHandlerError(http.StatusBadGateway, cause)
	if !errors.Is(he, cause) {
		t.Error("HandlerError must unwrap to its cause")
	}
}

func TestRedirectDefaultsToSeeOther(t *testing.T) {
	if got := Redirect("/next", 0).Status; got != http.StatusSeeOther {
		t.Errorf("default status = %d", got)
	}
	if got := Redirect("/next", http.StatusMovedPermanently).Status; got != http.StatusMovedPermanently {
		t.Errorf("explicit status = %d", got)
	}
	if got := Redirect("/next", http.StatusTeapot).Status; got != http.StatusSeeOther {
		t.Errorf("non-3xx status must fall back, got %d", got)
	}
}
