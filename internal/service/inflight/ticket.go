// Package inflight tracks asynchronous collaborator requests issued against a
// document version.
package inflight

import (
	"fmt"
	"sync/atomic"
)

// Generator issues request ids unique within the process.
type Generator struct {
	counter uint64
}

func New() *Generator {
	return &Generator{}
}

// Next returns "<scope>-req-<n>" with a process-wide counter.
func (g *Generator) Next(scope string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-req-%d", scope, n)
}

// Issue creates a pending ticket bound to the given document version.
func (g *Generator) Issue(scope, service string, version uint64) *Ticket {
	return NewTicket(g.Next(scope), service, version)
}
