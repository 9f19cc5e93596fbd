package nav

import (
	"context"
	"errors"
	"sync"

	"github.com/braid-dev/braid/pkg/deferred"
)

// Pending is the client-side handle for one deferred placeholder. It
// settles exactly once, when the matching settle event arrives.
type Pending struct {
	id string

	mu      sync.Mutex
	settled bool
	value   any
	err     error
	done    chan struct{}
}

func newPending(id string) *Pending {
	return &Pending{id: id, done: make(chan struct{})}
}

// ID returns the placeholder id from the document.
func (p *Pending) ID() string { return p.id }

// Done returns a channel closed at settlement.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Result returns the settled value or error. ok is false while pending.
func (p *Pending) Result() (value any, err error, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.settled {
		return nil, nil, false
	}
	return p.value, p.err, true
}

// Wait blocks until settlement or context cancellation.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settle applies a settle event. Only the first one takes.
func (p *Pending) settle(s deferred.Settlement) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return false
	}
	p.settled = true
	if s.State == deferred.StateRejected.String() {
		p.err = &deferred.Rejection{ID: p.id, Err: errors.New(s.Error)}
	} else {
		p.value = s.Value
	}
	close(p.done)
	return true
}
