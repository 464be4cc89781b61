package inflight

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a request ticket.
type State int

const (
	// StatePending - Request sent, response not yet handled.
	StatePending State = iota
	// StateApplied - Response was applied to the document.
	StateApplied
	// StateDiscarded - Response arrived after a newer local edit and was dropped.
	StateDiscarded
	// StateFailed - Collaborator returned an error. Nothing was applied.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateApplied:
		return "APPLIED"
	case StateDiscarded:
		return "DISCARDED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for every state but PENDING.
func (s State) IsTerminal() bool {
	return s != StatePending
}

// Errors for invalid transitions.
var (
	ErrTicketSettled = errors.New("ticket already settled")
)

// Ticket manages the state machine for a single collaborator request.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	PENDING ──→ APPLIED
//	   │
//	   ├──────→ DISCARDED
//	   │
//	   └──────→ FAILED
//
// Every transition happens at most once.
type Ticket struct {
	mu      sync.RWMutex
	id      string
	service string
	version uint64
	state   State
	err     error
}

// NewTicket creates a ticket in PENDING state.
func NewTicket(id, service string, version uint64) *Ticket {
	return &Ticket{
		id:      id,
		service: service,
		version: version,
		state:   StatePending,
	}
}

// ID returns the ticket id.
func (t *Ticket) ID() string { return t.id }

// Service names the collaborator the request went to.
func (t *Ticket) Service() string { return t.service }

// Version is the document version the request was built from.
func (t *Ticket) Version() uint64 { return t.version }

// State returns the current state.
func (t *Ticket) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Err returns the failure cause of a FAILED ticket.
func (t *Ticket) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// IsStale reports whether the document moved past the ticket's version.
func (t *Ticket) IsStale(current uint64) bool {
	return current != t.version
}

// Apply marks the response as applied.
func (t *Ticket) Apply() error {
	return t.settle(StateApplied, nil)
}

// Discard marks the response as superseded.
func (t *Ticket) Discard() error {
	return t.settle(StateDiscarded, nil)
}

// Fail marks the request as failed.
func (t *Ticket) Fail(err error) error {
	return t.settle(StateFailed, err)
}

func (t *Ticket) settle(to State, err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrTicketSettled, t.id, t.state)
	}
	t.state = to
	t.err = err
	return nil
}
