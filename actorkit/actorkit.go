// Package actorkit is a small actor runtime adapted from the engine this
// repository's teacher vendored locally under its own module path. Each
// actor runs its own goroutine and processes one message at a time from its
// mailbox; cross-actor communication only ever happens by sending owned
// values through the engine, never by sharing memory.
package actorkit

import "fmt"

// PID addresses a running actor instance.
type PID struct {
	ID string
}

func (p *PID) String() string {
	if p == nil {
		return "<nil>"
	}
	return p.ID
}

// Actor is implemented by anything that can be driven by the engine.
type Actor interface {
	Receive(ctx Context)
}

// Producer constructs a fresh Actor instance for a newly spawned process.
type Producer func() Actor

// Props bundles the producer used to create an actor.
type Props struct {
	producer Producer
}

// NewProps builds Props around a Producer.
func NewProps(producer Producer) *Props {
	if producer == nil {
		panic("actorkit: producer cannot be nil")
	}
	return &Props{producer: producer}
}

func (p *Props) produce() Actor { return p.producer() }

// --- System messages, delivered to every actor around its lifecycle ---

// Started is delivered once the actor's goroutine is running.
type Started struct{}

// Stopping is delivered when a stop has been requested; the actor should
// release resources. No user messages are delivered after Stopping.
type Stopping struct{}

// Stopped is the final message delivered to an actor, just before its
// goroutine exits.
type Stopped struct{}

type messageEnvelope struct {
	sender    *PID
	message   interface{}
	requestID string
	replyTo   chan interface{}
}

// ErrTimeout is returned by Ask when no reply arrives within the deadline.
var ErrTimeout = fmt.Errorf("actorkit: ask timed out")
