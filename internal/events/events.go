// Package events implements the status/event side channel between the chat
// session and a presentation layer.
//
// Two kinds of events exist: free-text status notifications ("Reading file
// app.ts", "Done") and incremental command output chunks streamed while a
// shell command runs. Events are advisory; they are never part of the
// conversation log.
package events

import (
	"context"
	"sync"
)

// Kind enumerates the event kinds carried by the channel.
type Kind string

const (
	// KindStatus is a human-readable progress notification.
	KindStatus Kind = "status"

	// KindCommandOutput is an incremental chunk of shell command output,
	// prefixed with its stream origin ("data: ", "error: ", "exit: ").
	KindCommandOutput Kind = "commandOutput"
)

// Event is a single notification on the side channel.
type Event struct {
	Kind    Kind
	Message string
}

// Emitter receives events from the session and its tool executors.
// Implementations must not block: the orchestration loop emits inline.
type Emitter interface {
	Emit(Event)
}

// Func adapts a plain function to the Emitter interface.
type Func func(Event)

// Emit calls f.
func (f Func) Emit(e Event) { f(e) }

// Status emits a status event through e. A nil emitter is a no-op, which
// lets non-observed code paths skip the plumbing.
func Status(e Emitter, msg string) {
	if e != nil {
		e.Emit(Event{Kind: KindStatus, Message: msg})
	}
}

// CommandOutput emits an incremental command output chunk through e.
func CommandOutput(e Emitter, chunk string) {
	if e != nil {
		e.Emit(Event{Kind: KindCommandOutput, Message: chunk})
	}
}

// Nop returns an emitter that drops every event.
func Nop() Emitter {
	return Func(func(Event) {})
}

// Channel is a bounded, non-blocking Emitter backed by a buffered channel.
// When the buffer is full new events are dropped rather than stalling the
// session; Dropped reports how many.
type Channel struct {
	ch      chan Event
	mu      sync.Mutex
	dropped int
}

// NewChannel creates a Channel with the given buffer size.
// Size values below 1 are raised to 1.
func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}
	return &Channel{ch: make(chan Event, size)}
}

// Emit enqueues e, dropping it if the buffer is full.
func (c *Channel) Emit(e Event) {
	select {
	case c.ch <- e:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
	}
}

// Events returns the receive side of the channel.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Dropped returns the number of events discarded because the buffer was full.
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close closes the underlying channel. The session must not emit afterwards.
func (c *Channel) Close() {
	close(c.ch)
}

// emitterKey is the context key for per-call emitter propagation.
type emitterKey struct{}

// ContextWithEmitter stores e in ctx so tool executors deep in the call
// tree can stream output without holding a reference to the session.
func ContextWithEmitter(ctx context.Context, e Emitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, e)
}

// FromContext retrieves the emitter stored by ContextWithEmitter.
// Returns nil when none is set; callers degrade to silence.
func FromContext(ctx context.Context) Emitter {
	e, _ := ctx.Value(emitterKey{}).(Emitter)
	return e
}
