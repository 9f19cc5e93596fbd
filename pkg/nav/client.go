package nav

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/braid-dev/braid/pkg/deferred"
	"github.com/braid-dev/braid/pkg/server"
)

// DataClient fetches server documents and settle streams. HTTPClient is
// the wire implementation; tests plug in fakes.
type DataClient interface {
	// FetchDocument runs the server pipeline for a path (with optional
	// query) and returns its document.
	FetchDocument(ctx context.Context, pathWithQuery string) (*server.Document, error)

	// Settlements attaches to a settle stream. The channel closes when
	// every deferred has settled or the stream ends.
	Settlements(ctx context.Context, streamID string) (<-chan deferred.Settlement, error)
}

// HTTPClient talks to a braid server's data and stream endpoints.
type HTTPClient struct {
	base string
	http *http.Client
}

// NewHTTPClient creates a client against a server base URL, e.g.
// "http://localhost:3000". Redirects surface in the document rather than
// being followed silently, so the navigator controls redirect hops.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		base: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// FetchDocument implements DataClient.
func (c *HTTPClient) FetchDocument(ctx context.Context, pathWithQuery string) (*server.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base+server.DataPrefix+pathWithQuery, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// A redirect answer has no document body; synthesize one so the
	// navigator can follow it.
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return &server.Document{
			Status:      resp.StatusCode,
			RedirectURL: resp.Header.Get("Location"),
		}, nil
	}

	var doc server.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("nav: decoding document: %w", err)
	}
	if doc.Status == 0 {
		doc.Status = resp.StatusCode
	}

	if doc.Status >= 400 {
		return nil, &server.HandlerError{
			Status:  doc.Status,
			Message: errorMessage(&doc),
			Exposed: true,
		}
	}
	return &doc, nil
}

// errorMessage extracts the server's already-shielded error text.
func errorMessage(doc *server.Document) string {
	if data, ok := doc.Data.(map[string]any); ok {
		if msg, ok := data["error"].(string); ok && msg != "" {
			return msg
		}
	}
	return http.StatusText(doc.Status)
}

// Settlements implements DataClient by attaching to the SSE stream.
func (c *HTTPClient) Settlements(ctx context.Context, streamID string) (<-chan deferred.Settlement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base+server.StreamPrefix+"/"+streamID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, errors.New("nav: settle stream expired or already claimed")
		}
		return nil, fmt.Errorf("nav: settle stream status %d", resp.StatusCode)
	}

	ch := make(chan deferred.Settlement)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		var event, data string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if event == "done" {
					return
				}
				if event == "settle" && data != "" {
					var s deferred.Settlement
					if err := json.Unmarshal([]byte(data), &s); err == nil {
						select {
						case ch <- s:
						case <-ctx.Done():
							return
						}
					}
				}
				event, data = "", ""
			case strings.HasPrefix(line, ":"):
				// heartbeat comment
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	return ch, nil
}
