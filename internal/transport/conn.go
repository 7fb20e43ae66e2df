// Package transport provides the persistent, ordered, message-oriented
// channel between the server and one client. Messages are JSON envelopes;
// reads are non-blocking so the single game loop can poll every member each
// tick without stalling.
package transport

import "github.com/roomloop/tictactoe-server/internal/protocol"

// Conn is one client endpoint. Send and TryReceive are only called from the
// game loop goroutine.
type Conn interface {
	// Send writes a message to the client.
	Send(msg *protocol.Message) error

	// TryReceive returns the next inbound message without blocking.
	// (nil, nil) means nothing is queued; a non-nil error means the
	// connection is dead and will never produce another message.
	TryReceive() (*protocol.Message, error)

	// Close tears the connection down. Safe to call more than once.
	Close() error

	// RemoteAddr identifies the peer for logging.
	RemoteAddr() string
}
