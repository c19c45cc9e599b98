// Package routerd implements the trusted forwarding element's agent:
// it owns an accumulator, serializes every operation against it onto
// one goroutine, and exposes the accumulator's serialized state over
// the digest transport protocol.
package routerd

import (
	"context"

	"github.com/ygina/subset-digest/pkg/accumulator"
)

type peekMode int

const (
	peek peekMode = iota
	peekAndReset
)

type digestRequest struct {
	mode peekMode
	resp chan []byte
}

// Router owns a single accumulator. Process calls and digest requests
// alike are funneled through Run's select loop so no two operations
// against the accumulator ever execute concurrently.
type Router struct {
	acc     accumulator.Accumulator
	ingest  chan []byte
	digests chan digestRequest
}

// NewRouter wraps acc for single-goroutine access. ingestBuffer bounds
// how many packets can queue before Ingest blocks; 0 means unbuffered.
func NewRouter(acc accumulator.Accumulator, ingestBuffer int) *Router {
	return &Router{
		acc:     acc,
		ingest:  make(chan []byte, ingestBuffer),
		digests: make(chan digestRequest),
	}
}

// Ingest queues elem for processing. It blocks only on channel
// backpressure, never on the accumulator.
func (r *Router) Ingest(elem []byte) {
	r.ingest <- elem
}

// requestDigest asks the owning goroutine for the accumulator's
// current serialized state, optionally resetting it afterward.
func (r *Router) requestDigest(mode peekMode) []byte {
	resp := make(chan []byte, 1)
	r.digests <- digestRequest{mode: mode, resp: resp}
	return <-resp
}

// Peek returns to_bytes() without resetting the accumulator.
func (r *Router) Peek() []byte { return r.requestDigest(peek) }

// PeekAndReset returns to_bytes() and then resets the accumulator.
func (r *Router) PeekAndReset() []byte { return r.requestDigest(peekAndReset) }

// Run drives the router's single accumulator-owning goroutine until
// ctx is canceled.
func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case elem := <-r.ingest:
			r.acc.Process(elem)
		case req := <-r.digests:
			data := r.acc.ToBytes()
			if req.mode == peekAndReset {
				r.acc.Reset()
			}
			req.resp <- data
		}
	}
}
