// Package correlator implements a request-response correlator:
// blocking-HTTP-to-async-WebSocket bridging keyed by request id, with
// timeout and first-responder-wins fan-in policy.
//
// Shaped after a result-stream manager's CreateResultStream/WaitForResult/
// PublishResult/DestroyResultStream, which map onto Issue/the waiter/
// Resolve/the entry cleanup that happens automatically on first
// resolution. Collapsed from a two-tier local-cache-plus-remote-backed
// design (built for cross-node result delivery) to a single in-process
// map, since this service never has more than one process (see DESIGN.md).
package correlator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opencanvas/canvasd/internal/canvaserr"
	"github.com/opencanvas/canvasd/internal/telemetry"
)

// Kind identifies the correlated-call family, each with its own default
// deadline.
type Kind string

const (
	Mermaid     Kind = "mermaid"
	ExportImage Kind = "exportImage"
	Viewport    Kind = "viewport"
)

// DefaultDeadline returns the recommended deadline for kind.
func DefaultDeadline(kind Kind) time.Duration {
	switch kind {
	case Mermaid:
		return 30 * time.Second
	case ExportImage:
		return 30 * time.Second
	case Viewport:
		return 10 * time.Second
	default:
		return 30 * time.Second
	}
}

// Waiter is returned by Issue; callers block on Wait until the first
// result, error, or deadline.
type Waiter struct {
	ch <-chan outcome
}

type outcome struct {
	payload any
	err     error
}

// Wait blocks until the pending request resolves, fails, or ctx is
// cancelled (in which case the pending entry is left for the deadline timer
// to clean up).
func (w *Waiter) Wait(ctx context.Context) (any, error) {
	select {
	case o := <-w.ch:
		return o.payload, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type pending struct {
	kind     Kind
	ch       chan outcome
	timer    *time.Timer
	issuedAt time.Time
	doneMu   sync.Mutex
	done     bool
}

// Correlator maps request ids to pending waiters.
type Correlator struct {
	mu      sync.Mutex
	entries map[string]*pending
}

// New constructs an empty Correlator.
func New() *Correlator {
	return &Correlator{entries: make(map[string]*pending)}
}

// Issue allocates a request id, registers a pending entry with a deadline
// timer, and returns the id plus a Waiter that resolves on Resolve, Fail,
// or deadline elapse.
func (c *Correlator) Issue(kind Kind, deadline time.Duration) (string, *Waiter) {
	id := uuid.NewString()
	ch := make(chan outcome, 1)
	p := &pending{kind: kind, ch: ch, issuedAt: time.Now()}

	c.mu.Lock()
	c.entries[id] = p
	c.mu.Unlock()

	p.timer = time.AfterFunc(deadline, func() { c.onDeadline(id) })

	return id, &Waiter{ch: ch}
}

// Resolve delivers payload to the pending waiter for id. First call wins;
// a result arriving for an unknown or already-settled id is the late-result
// case and is a silent no-op here — callers (the REST result endpoints)
// must still answer 200 regardless of this method's return value.
func (c *Correlator) Resolve(id string, payload any) {
	c.settle(id, outcome{payload: payload})
}

// Fail analogously delivers an error to the pending waiter for id. It
// settles the waiter at once, in the same first-call-wins race as Resolve:
// an error that arrives before any successful result fails the waiter, and
// results arriving after it are discarded. Fail does not wait for other
// peers to answer before reporting the error.
func (c *Correlator) Fail(id string, err error) {
	c.settle(id, outcome{err: err})
}

func (c *Correlator) settle(id string, o outcome) {
	c.mu.Lock()
	p, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
	}
	c.mu.Unlock()
	if !ok {
		return // late result: known to the caller as success regardless.
	}

	p.doneMu.Lock()
	if p.done {
		p.doneMu.Unlock()
		return
	}
	p.done = true
	p.doneMu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	telemetry.CorrelatorWaitSeconds.WithLabelValues(string(p.kind)).Observe(time.Since(p.issuedAt).Seconds())
	p.ch <- o
}

// onDeadline removes the entry and signals the waiter with a Timeout error.
func (c *Correlator) onDeadline(id string) {
	c.mu.Lock()
	p, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	p.doneMu.Lock()
	if p.done {
		p.doneMu.Unlock()
		return
	}
	p.done = true
	p.doneMu.Unlock()

	telemetry.CorrelatorTimeoutsTotal.WithLabelValues(string(p.kind)).Inc()
	p.ch <- outcome{err: canvaserr.New(canvaserr.Timeout, "%s request timed out", p.kind)}
}

// Pending reports whether id currently has an unsettled entry. The REST
// result endpoints do not consult it: they answer 200 whether or not the
// result is late.
func (c *Correlator) Pending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}
