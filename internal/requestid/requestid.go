// Package requestid generates process-unique request identifiers, adapted
// from this codebase's segment-id generator: an atomic counter rather than
// a UUID library, since request ids here only need to be unique within one
// process's lifetime for log correlation.
package requestid

import (
	"fmt"
	"sync/atomic"
)

// Generator produces monotonically increasing request ids.
type Generator struct {
	counter uint64
}

// New creates a Generator starting at zero.
func New() *Generator {
	return &Generator{}
}

// Next returns the next request id in the sequence.
func (g *Generator) Next() string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("req-%d", n)
}
