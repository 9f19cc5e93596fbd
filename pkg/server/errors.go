package server

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for request handling.
var (
	// ErrNotFound is returned when no route matches a request path.
	ErrNotFound = errors.New("server: route not found")

	// ErrMethodNotAllowed is returned when the matched route has no
	// handler for the request method.
	ErrMethodNotAllowed = errors.New("server: method not allowed")
)

// NotFoundError reports that no chain in the tree matches a path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("server: no route matches %s", e.Path)
}

// Unwrap lets errors.Is(err, ErrNotFound) work across wrapping layers.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// HandlerError is a failure raised by middleware, a loader, or an action.
// It carries the response status and an exposure flag: only errors that
// opt in show their message to the end user, everything else renders
// generically while the cause goes to the log.
type HandlerError struct {
	// Status is the HTTP status to respond with.
	Status int

	// Message is the user-facing text. Shown only when Exposed.
	Message string

	// Exposed marks the message as safe for the client.
	Exposed bool

	// Err is the underlying cause, never sent to the client.
	Err error
}

// NewHandlerError creates an internal handler error. The message renders
// generically; wrap the cause so the log keeps the detail.
func NewHandlerError(status int, err error) *HandlerError {
	return &HandlerError{Status: status, Err: err}
}

// Expose creates a handler error whose message is safe to show:
//
//	return nil, server.Expose(http.StatusConflict, "that name is taken")
func Expose(status int, format string, args ...any) *HandlerError {
	return &HandlerError{
		Status:  status,
		Message: fmt.Sprintf(format, args...),
		Exposed: true,
	}
}

func (e *HandlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server: handler error (%d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("server: handler error (%d): %s", e.Status, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *HandlerError) Unwrap() error { return e.Err }

// PublicError returns the client-safe message. Implements the exposure
// contract the deferred streamer checks before putting an error on the
// wire.
func (e *HandlerError) PublicError() string {
	if e.Exposed && e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode())
}

// StatusCode returns the response status, defaulting to 500.
func (e *HandlerError) StatusCode() int {
	if e.Status >= 400 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// RedirectError is control flow, not failure: a handler throws it to stop
// the chain and send the client elsewhere.
type RedirectError struct {
	URL    string
	Status int
}

// Redirect stops the pipeline and redirects. Status defaults to 303 so
// action redirects follow as GET:
//
//	return nil, server.Redirect("/posts/"+id, 0)
func Redirect(url string, status int) *RedirectError {
	if status < 300 || status > 399 {
		status = http.StatusSeeOther
	}
	return &RedirectError{URL: url, Status: status}
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("server: redirect to %s (%d)", e.URL, e.Status)
}

// StatusOf maps an error to its response status: HandlerError carries its
// own, NotFound maps to 404, method mismatches to 405, anything else is a
// 500.
func StatusOf(err error) int {
	var he *HandlerError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrMethodNotAllowed) {
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}

// PublicMessageOf maps an error to the text safe to show the client.
func PublicMessageOf(err error) string {
	var he *HandlerError
	if errors.As(err, &he) {
		return he.PublicError()
	}
	return http.StatusText(StatusOf(err))
}
