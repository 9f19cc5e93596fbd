package deferred

import (
	"sync"
	"time"
)

// DefaultAttachWindow is how long an unclaimed stream waits for its
// client before it is dropped.
const DefaultAttachWindow = 30 * time.Second

// Hub parks streams between the initial response and the client's attach
// request. The response carries the stream id; the client opens the
// stream endpoint; the endpoint takes the stream out of the hub. A client
// that never attaches (crawler, aborted navigation) leaves the stream to
// expire, and its producers' results are discarded.
type Hub struct {
	mu      sync.Mutex
	streams map[string]*Stream
	window  time.Duration
}

// NewHub creates a hub with the given attach window.
func NewHub(window time.Duration) *Hub {
	if window <= 0 {
		window = DefaultAttachWindow
	}
	return &Hub{
		streams: make(map[string]*Stream),
		window:  window,
	}
}

// Put parks a stream until its client attaches or the window passes.
func (h *Hub) Put(s *Stream) {
	h.mu.Lock()
	h.streams[s.ID()] = s
	h.mu.Unlock()

	time.AfterFunc(h.window, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if parked, ok := h.streams[s.ID()]; ok && parked == s {
			delete(h.streams, s.ID())
		}
	})
}

// Take claims a parked stream. Each stream can be claimed once; a second
// attach for the same id reports false.
func (h *Hub) Take(id string) (*Stream, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.streams[id]
	if ok {
		delete(h.streams, id)
	}
	return s, ok
}

// Len reports the number of parked streams.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}
