// Package notify defines the boundary between the session engine and the
// host application's real-time layer (websocket hub, SSE broker, push
// gateway). The engine emits one [Disconnect] per affected user when
// sessions are invalidated; delivery transport is the consumer's concern.
package notify

import (
	"context"
	"sync/atomic"
)

// Reason explains why a user's live connections should be torn down.
type Reason string

const (
	// ReasonNewLogin is emitted when a login displaces older sessions
	// under a concurrent-session cap.
	ReasonNewLogin Reason = "new_login"
	// ReasonLogout is emitted for an explicit all-devices logout.
	ReasonLogout Reason = "logout"
	// ReasonTokenTheft is emitted when refresh credential reuse was
	// detected and every session of the user was invalidated.
	ReasonTokenTheft Reason = "token_theft"
)

// Disconnect instructs the real-time layer to drop all live connections
// for a user.
type Disconnect struct {
	UserID string `json:"user_id"`
	Reason Reason `json:"reason"`
}

// Notifier receives disconnect signals. Implementations must be safe for
// concurrent use and must not block indefinitely; the engine calls
// Disconnect on its own request goroutines.
type Notifier interface {
	Disconnect(ctx context.Context, event Disconnect)
}

// NoOp discards all signals. Used when no real-time layer is wired.
type NoOp struct{}

func (NoOp) Disconnect(context.Context, Disconnect) {}

// Channel buffers signals for an in-process consumer. When the buffer is
// full the signal is dropped and counted rather than blocking the engine.
type Channel struct {
	events  chan Disconnect
	dropped atomic.Uint64
}

func NewChannel(buffer int) *Channel {
	if buffer <= 0 {
		buffer = 1
	}
	return &Channel{
		events: make(chan Disconnect, buffer),
	}
}

func (c *Channel) Disconnect(ctx context.Context, event Disconnect) {
	select {
	case c.events <- event:
	case <-ctx.Done():
		c.dropped.Add(1)
	default:
		c.dropped.Add(1)
	}
}

func (c *Channel) Events() <-chan Disconnect {
	return c.events
}

// Dropped reports how many signals were discarded due to backpressure.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}
