package server

import (
	"encoding/json"
	"net/http"

	"github.com/braid-dev/braid/pkg/hydrate"
)

// Document is the renderable outcome of one request: the immediate data,
// placeholders for deferred fields, and the dehydrated context payload.
// The renderer decides the wire shape; the document is transport-neutral.
type Document struct {
	// Status is the HTTP status to respond with.
	Status int `json:"status"`

	// Data is the loader/action result with deferred fields replaced by
	// placeholders, or a middleware's staged body.
	Data any `json:"data,omitempty"`

	// Deferred lists the ids of fields that stream after the response.
	Deferred []string `json:"deferred,omitempty"`

	// StreamID names the settle stream to attach to when Deferred is
	// non-empty.
	StreamID string `json:"streamId,omitempty"`

	// Context is the serialized context payload for client hydration.
	Context hydrate.Payload `json:"context,omitempty"`

	// ContextToken is the signed envelope form of Context, present when
	// the server holds an envelope key. Clients holding the same key
	// rehydrate from the token so a tampered payload is rejected.
	ContextToken string `json:"contextToken,omitempty"`

	// RedirectURL is set when the pipeline ended in a redirect.
	RedirectURL string `json:"redirect,omitempty"`

	// RoutePattern is the matched route, e.g. "/blog/[id]".
	RoutePattern string `json:"route,omitempty"`

	// Boundary names the node whose error boundary produced Data, when
	// the request erred and was caught.
	Boundary string `json:"boundary,omitempty"`
}

// Renderer turns a document into a response body. The UI rendering engine
// is an external collaborator behind this seam; braid ships the JSON
// renderer the data endpoint and API-style routes use.
type Renderer interface {
	// Render writes the document. Status and headers are already set by
	// the caller; Render only produces the body.
	Render(w http.ResponseWriter, r *http.Request, doc *Document) error

	// ContentType is the response media type this renderer produces.
	ContentType() string
}

// JSONRenderer writes documents as JSON.
type JSONRenderer struct {
	// Indent pretty-prints responses, for development.
	Indent bool
}

func (jr *JSONRenderer) ContentType() string {
	return "application/json; charset=utf-8"
}

func (jr *JSONRenderer) Render(w http.ResponseWriter, r *http.Request, doc *Document) error {
	enc := json.NewEncoder(w)
	if jr.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}
