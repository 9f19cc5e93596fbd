package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/braid-dev/braid/pkg/deferred"
	"github.com/braid-dev/braid/pkg/hydrate"
	"github.com/braid-dev/braid/pkg/router"
)

func testServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	reg := router.NewRegistry()
	reg.Server("/", &router.ServerModule{Loader: func(ctx Ctx) (any, error) {
		return map[string]any{"page": "home"}, nil
	}})
	reg.Server("/blog/[id]", &router.ServerModule{Loader: func(ctx Ctx) (any, error) {
		return map[string]any{"id": ctx.Param("id")}, nil
	}})
	reg.Server("/slow", &router.ServerModule{Loader: func(ctx Ctx) (any, error) {
		return map[string]any{
			"fast": "x",
			"slow": deferred.Go(ctx.StdContext(), func(context.Context) (any, error) {
				return "eventually", nil
			}),
		}, nil
	}})
	tree := buildTree(t, routesFS("route.go", "blog/[id]/route.go", "slow/route.go"), reg)

	srv, err := New(tree, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func getDocument(t *testing.T, handler http.Handler, path string) (*httptest.ResponseRecorder, *Document) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var doc Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("response is not a document: %v\n%s", err, rec.Body.String())
	}
	return rec, &doc
}

func TestServerServesMatchedRoute(t *testing.T) {
	handler := testServer(t).Handler()

	rec, doc := getDocument(t, handler, "/blog/42")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if doc.RoutePattern != "/blog/[id]" {
		t.Errorf("route = %q", doc.RoutePattern)
	}
	if doc.Data.(map[string]any)["id"] != "42" {
		t.Errorf("data = %v", doc.Data)
	}
}

func TestServerNotFound(t *testing.T) {
	handler := testServer(t).Handler()

	rec, doc := getDocument(t, handler, "/missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if doc.Data.(map[string]any)["error"] != "Not Found" {
		t.Errorf("data = %v", doc.Data)
	}
}

func TestServerCanonicalizeRedirect(t *testing.T) {
	handler := testServer(t).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog//42/?q=1", nil))

	if rec.Code != http.StatusPermanentRedirect {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/blog/42?q=1" {
		t.Errorf("Location = %q", loc)
	}
}

func TestServerRejectsMaliciousPaths(t *testing.T) {
	handler := testServer(t).Handler()

	for _, path := range []string{"/a/../../etc/passwd", "/a%00b"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = path
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rec.Code)
		}
	}
}

func TestServerDataEndpoint(t *testing.T) {
	handler := testServer(t).Handler()

	rec, doc := getDocument(t, handler, DataPrefix+"/blog/42")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if doc.Data.(map[string]any)["id"] != "42" {
		t.Errorf("data = %v", doc.Data)
	}
}

func TestServerDeferredFlow(t *testing.T) {
	handler := testServer(t).Handler()

	rec, doc := getDocument(t, handler, "/slow")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	// Immediate field ships now, pending field ships as a placeholder.
	data := doc.Data.(map[string]any)
	if data["fast"] != "x" {
		t.Errorf("fast = %v", data["fast"])
	}
	if doc.StreamID == "" || len(doc.Deferred) != 1 {
		t.Fatalf("document not stream-tagged: %+v", doc)
	}
	if rec.Header().Get(StreamIDHeader) != doc.StreamID {
		t.Error("stream header and document id disagree")
	}

	// Attaching to the stream yields the settlement exactly once.
	streamRec := httptest.NewRecorder()
	handler.ServeHTTP(streamRec, httptest.NewRequest(http.MethodGet, StreamPrefix+"/"+doc.StreamID, nil))
	if streamRec.Code != http.StatusOK {
		t.Fatalf("stream status = %d", streamRec.Code)
	}

	var settlement deferred.Settlement
	scanner := bufio.NewScanner(strings.NewReader(streamRec.Body.String()))
	for scanner.Scan() {
		if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok && strings.Contains(data, "state") {
			if err := json.Unmarshal([]byte(data), &settlement); err != nil {
				t.Fatalf("bad settle payload: %v", err)
			}
		}
	}
	if settlement.ID != doc.Deferred[0] || settlement.Value != "eventually" {
		t.Errorf("settlement = %+v", settlement)
	}

	// Streams are single-claim.
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, StreamPrefix+"/"+doc.StreamID, nil))
	if rec2.Code != http.StatusNotFound {
		t.Errorf("second attach status = %d", rec2.Code)
	}
}

func TestServerManifest(t *testing.T) {
	handler := testServer(t).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ManifestPath, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var manifest router.Manifest
	if err := json.Unmarshal(rec.Body.Bytes(), &manifest); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(manifest.Routes) != 3 {
		t.Errorf("routes = %d, want 3", len(manifest.Routes))
	}
}

func TestServerSealsContextToken(t *testing.T) {
	key := []byte("context-signing-key")
	registry := hydrate.NewRegistry()
	theme := hydrate.Define[string](registry, "theme")

	reg := router.NewRegistry()
	reg.Server("/", &router.ServerModule{Loader: func(ctx Ctx) (any, error) {
		theme.Set(ctx, "dark")
		return "page", nil
	}})
	tree := buildTree(t, routesFS("route.go"), reg)

	srv, err := New(tree, WithRegistry(registry), WithEnvelopeKey(key))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, doc := getDocument(t, srv.Handler(), DataPrefix)
	if doc.ContextToken == "" {
		t.Fatal("document carries no context token")
	}

	payload, err := hydrate.NewEnvelope(key).Open(doc.ContextToken)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(payload["theme"]) != `"dark"` {
		t.Errorf("sealed theme = %s", payload["theme"])
	}

	// Without a key the token stays absent.
	_, doc = getDocument(t, testServer(t).Handler(), "/")
	if doc.ContextToken != "" {
		t.Error("token present without an envelope key")
	}
}

func TestServerSwapTree(t *testing.T) {
	srv := testServer(t)
	handler := srv.Handler()

	reg := router.NewRegistry()
	reg.Server("/fresh", &router.ServerModule{Loader: func(ctx Ctx) (any, error) {
		return "new tree", nil
	}})
	srv.SwapTree(buildTree(t, routesFS("fresh/route.go"), reg))

	rec, doc := getDocument(t, handler, "/fresh")
	if rec.Code != http.StatusOK || doc.Data != "new tree" {
		t.Errorf("swapped tree not serving: %d %v", rec.Code, doc.Data)
	}

	rec, _ = getDocument(t, handler, "/blog/42")
	if rec.Code != http.StatusNotFound {
		t.Errorf("old tree still serving: %d", rec.Code)
	}
}

func TestServerStreamWindow(t *testing.T) {
	srv := testServer(t, WithStreamWindow(5*time.Millisecond))
	handler := srv.Handler()

	_, doc := getDocument(t, handler, "/slow")

	// Let the attach window lapse without claiming the stream.
	time.Sleep(50 * time.Millisecond)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, StreamPrefix+"/"+doc.StreamID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expired stream still attachable: %d", rec.Code)
	}
}
