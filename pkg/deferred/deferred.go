package deferred

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// State is the lifecycle position of a deferred value. Transitions are
// one-way: Pending settles to Resolved or Rejected exactly once.
type State int32

const (
	StatePending State = iota
	StateResolved
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Deferred is a value a loader returns before it is ready. The initial
// response carries a placeholder tagged with the deferred's id; the
// resolution streams to the client when the producer settles it.
type Deferred struct {
	id string

	mu    sync.Mutex
	state State
	value any
	err   error
	done  chan struct{}
}

// New creates a pending deferred value. The producer settles it with
// Resolve or Reject.
func New() *Deferred {
	return &Deferred{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

// Go runs fn in its own goroutine and settles the returned deferred with
// its result. The context should derive from the request so producers
// learn about client disconnects; a producer that keeps running after
// cancellation only wastes its own time, its result is discarded.
//
//	return map[string]any{
//	    "post":     post,
//	    "comments": deferred.Go(ctx.StdContext(), loadComments),
//	}, nil
func Go(ctx context.Context, fn func(context.Context) (any, error)) *Deferred {
	d := New()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.Reject(fmt.Errorf("deferred producer panicked: %v", r))
			}
		}()
		v, err := fn(ctx)
		if err != nil {
			d.Reject(err)
			return
		}
		d.Resolve(v)
	}()
	return d
}

// ID returns the wire identifier clients use to match settle events to
// placeholders.
func (d *Deferred) ID() string { return d.id }

// State returns the current lifecycle state.
func (d *Deferred) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Resolve settles the deferred with a value. Only the first settlement
// takes; later calls report false and change nothing.
func (d *Deferred) Resolve(value any) bool {
	return d.settle(StateResolved, value, nil)
}

// Reject settles the deferred with an error.
func (d *Deferred) Reject(err error) bool {
	if err == nil {
		err = fmt.Errorf("deferred rejected with nil error")
	}
	return d.settle(StateRejected, nil, err)
}

func (d *Deferred) settle(state State, value any, err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StatePending {
		return false
	}
	d.state = state
	d.value = value
	d.err = err
	close(d.done)
	return true
}

// Settled returns a channel closed at settlement.
func (d *Deferred) Settled() <-chan struct{} { return d.done }

// Result returns the settled value or error. ok is false while the
// deferred is still pending.
func (d *Deferred) Result() (value any, err error, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == StatePending {
		return nil, nil, false
	}
	return d.value, d.err, true
}

// Wait blocks until settlement or context cancellation.
func (d *Deferred) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rejection is the per-value error a rejected deferred delivers. It is
// scoped to the one placeholder that consumed the value; sibling deferreds
// and the already-sent response are unaffected.
type Rejection struct {
	ID  string
	Err error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("deferred %s rejected: %v", r.ID, r.Err)
}

func (r *Rejection) Unwrap() error { return r.Err }

// PublicError is implemented by errors whose message is safe to send to
// the client. Anything else streams as a generic failure while the cause
// stays in the server log.
type PublicError interface {
	PublicError() string
}
