package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

type reply struct {
	body json.RawMessage
	err  error
}

type pendingRequest struct {
	kind string
	ch   chan reply // buffered 1, written once
}

// PendingTable correlates surface requests with their responses. Each
// request is fulfilled at most once: removal from the table under the lock
// is what grants the right to complete it.
type PendingTable struct {
	mu       sync.Mutex
	next     int
	pending  map[int]*pendingRequest
	disposed bool
}

func NewPendingTable() *PendingTable {
	return &PendingTable{next: 1, pending: map[int]*pendingRequest{}}
}

func (t *PendingTable) issue(kind string) (int, *pendingRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return 0, nil, ErrSurfaceDisposed
	}
	id := t.next
	t.next++
	p := &pendingRequest{kind: kind, ch: make(chan reply, 1)}
	t.pending[id] = p
	return id, p, nil
}

// take removes and returns the request for id.
func (t *PendingTable) take(id int) (*pendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	return p, ok
}

// Request issues a request with a fresh id, hands the id to send and waits
// for exactly one matching response.
func (t *PendingTable) Request(ctx context.Context, kind string, send func(id int) error) (json.RawMessage, error) {
	id, p, err := t.issue(kind)
	if err != nil {
		return nil, err
	}
	if err := send(id); err != nil {
		t.take(id)
		return nil, fmt.Errorf("send %s: %w", kind, err)
	}
	select {
	case r := <-p.ch:
		return r.body, r.err
	case <-ctx.Done():
		if _, ok := t.take(id); !ok {
			// completed concurrently
			r := <-p.ch
			return r.body, r.err
		}
		return nil, fmt.Errorf("%s request %d: %w", kind, id, ctx.Err())
	}
}

// Resolve completes request id. A second response for the same id, or one
// for an id never issued, returns ErrRequestCorrelation and changes nothing.
func (t *PendingTable) Resolve(id int, body json.RawMessage) error {
	p, ok := t.take(id)
	if !ok {
		return fmt.Errorf("request %d: %w", id, ErrRequestCorrelation)
	}
	p.ch <- reply{body: body}
	return nil
}

// DisposeAll fails every outstanding request with ErrSurfaceDisposed and
// refuses new ones. It returns how many were failed.
func (t *PendingTable) DisposeAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disposed = true
	n := len(t.pending)
	for id, p := range t.pending {
		delete(t.pending, id)
		p.ch <- reply{err: fmt.Errorf("%s request %d: %w", p.kind, id, ErrSurfaceDisposed)}
	}
	return n
}

func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
