package nav

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/braid-dev/braid/pkg/server"
)

func TestHTTPClientFetchDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != server.DataPrefix+"/blog/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.RawQuery != "tab=comments" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":200,"data":{"title":"hello"},"route":"/blog/[id]"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	doc, err := c.FetchDocument(context.Background(), "/blog/42?tab=comments")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != 200 || doc.RoutePattern != "/blog/[id]" {
		t.Errorf("doc = %+v", doc)
	}
	data := doc.Data.(map[string]any)
	if data["title"] != "hello" {
		t.Errorf("data = %v", doc.Data)
	}
}

func TestHTTPClientSurfacesRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}))
	defer srv.Close()

	doc, err := NewHTTPClient(srv.URL).FetchDocument(context.Background(), "/account")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != http.StatusSeeOther || doc.RedirectURL != "/login" {
		t.Errorf("doc = %+v, redirect must not be auto-followed", doc)
	}
}

func TestHTTPClientErrorDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"status":409,"data":{"error":"already exists"}}`))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).FetchDocument(context.Background(), "/things")
	var herr *server.HandlerError
	if !errors.As(err, &herr) {
		t.Fatalf("err = %v", err)
	}
	if herr.Status != http.StatusConflict || server.PublicMessageOf(err) != "already exists" {
		t.Errorf("err = %+v", herr)
	}
}

func TestHTTPClientSettlements(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != server.StreamPrefix+"/s1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(": heartbeat\n\n"))
		w.Write([]byte("event: settle\ndata: {\"id\":\"d1\",\"state\":\"resolved\",\"value\":7}\n\n"))
		w.Write([]byte("event: settle\ndata: {\"id\":\"d2\",\"state\":\"rejected\",\"error\":\"nope\"}\n\n"))
		w.Write([]byte("event: done\ndata: {}\n\n"))
	}))
	defer srv.Close()

	ch, err := NewHTTPClient(srv.URL).Settlements(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}

	s1, ok := <-ch
	if !ok || s1.ID != "d1" || s1.State != "resolved" || s1.Value != float64(7) {
		t.Errorf("first settlement = %+v, %v", s1, ok)
	}
	s2, ok := <-ch
	if !ok || s2.ID != "d2" || s2.Error != "nope" {
		t.Errorf("second settlement = %+v, %v", s2, ok)
	}
	if _, ok := <-ch; ok {
		t.Error("channel should close after done event")
	}
}

func TestHTTPClientSettlementsExpired(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := NewHTTPClient(srv.URL).Settlements(context.Background(), "gone"); err == nil {
		t.Fatal("expired stream should error")
	}
}
