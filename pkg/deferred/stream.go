package deferred

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event is one server-sent event on the settle stream.
type Event struct {
	ID    string
	Event string
	Data  string
	Retry int // milliseconds
}

// FormatEvent renders an event in SSE wire framing.
func FormatEvent(e *Event) []byte {
	var buf []byte
	if e.ID != "" {
		buf = append(buf, []byte(fmt.Sprintf("id: %s\n", e.ID))...)
	}
	if e.Event != "" {
		buf = append(buf, []byte(fmt.Sprintf("event: %s\n", e.Event))...)
	}
	if e.Retry > 0 {
		buf = append(buf, []byte(fmt.Sprintf("retry: %d\n", e.Retry))...)
	}
	buf = append(buf, []byte(fmt.Sprintf("data: %s\n\n", e.Data))...)
	return buf
}

// Settlement is the payload of one settle event.
type Settlement struct {
	ID    string `json:"id"`
	State string `json:"state"` // resolved | rejected
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Stream delivers the settle events for one response's deferred values.
// Producers settle concurrently; a single pump goroutine serializes their
// settlements into the event channel in settlement order, so the first
// value to finish is the first one on the wire regardless of declaration
// order.
type Stream struct {
	id     string
	events chan *Event
	logger *slog.Logger
}

// NewStream starts watching a set of deferred values. The stream's event
// channel closes after the last settlement; a stream over an empty set
// closes immediately.
func NewStream(id string, defs []*Deferred, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stream{
		id:     id,
		events: make(chan *Event, len(defs)),
		logger: logger,
	}

	settled := make(chan *Deferred)
	for _, d := range defs {
		go func(d *Deferred) {
			<-d.Settled()
			settled <- d
		}(d)
	}

	go func() {
		defer close(s.events)
		for range defs {
			d := <-settled
			s.events <- s.encode(d)
		}
	}()

	return s
}

// ID returns the stream identifier, shared with the initial response so
// the client can attach.
func (s *Stream) ID() string { return s.id }

// Events returns the settle events in settlement order. The channel
// closes when every deferred has settled.
func (s *Stream) Events() <-chan *Event { return s.events }

// encode turns a settled deferred into its wire event. A rejection stays
// scoped to its value: the message crosses the wire only when the error
// opted in via PublicError, the rest log server-side.
func (s *Stream) encode(d *Deferred) *Event {
	value, err, ok := d.Result()
	if !ok {
		// Unreachable: the pump only sees settled values.
		panic("deferred: encoding a pending value")
	}

	settlement := Settlement{ID: d.ID(), State: d.State().String()}
	if err != nil {
		s.logger.Error("deferred value rejected",
			slog.String("stream", s.id),
			slog.String("deferred", d.ID()),
			slog.Any("error", err))

		var public PublicError
		if errors.As(err, &public) {
			settlement.Error = public.PublicError()
		} else {
			settlement.Error = "internal error"
		}
	} else {
		settlement.Value = value
	}

	data, jsonErr := json.Marshal(settlement)
	if jsonErr != nil {
		s.logger.Error("deferred value not serializable",
			slog.String("deferred", d.ID()),
			slog.Any("error", jsonErr))
		data, _ = json.Marshal(Settlement{ID: d.ID(), State: StateRejected.String(), Error: "internal error"})
	}

	return &Event{ID: d.ID(), Event: "settle", Data: string(data)}
}

// heartbeatInterval keeps proxies from timing out quiet streams.
const heartbeatInterval = 15 * time.Second

// ServeHTTP writes the stream as text/event-stream until every deferred
// settles or the client goes away. Disconnect does not cancel producers;
// their settlements drain into the closed connection's channel buffer and
// are discarded with the stream.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("settle stream client disconnected", slog.String("stream", s.id))
			return

		case <-heartbeat.C:
			if _, err := w.Write([]byte(": heartbeat\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case event, open := <-s.events:
			if !open {
				w.Write(FormatEvent(&Event{Event: "done", Data: "{}"}))
				flusher.Flush()
				return
			}
			if _, err := w.Write(FormatEvent(event)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
