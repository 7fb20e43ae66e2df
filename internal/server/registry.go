package server

import (
	"strings"

	"github.com/roomloop/tictactoe-server/internal/transport"
)

// PlayerRecord is the account-level state tracked per connection. It exists
// from the first registry lookup until the connection is dropped.
type PlayerRecord struct {
	Username string
}

// Registry maps live connections to their player records. Mutated only from
// the game loop.
type Registry struct {
	players map[transport.Conn]*PlayerRecord
}

func NewRegistry() *Registry {
	return &Registry{
		players: make(map[transport.Conn]*PlayerRecord),
	}
}

// Record returns the record for conn, creating an empty one on first lookup.
func (that *Registry) Record(conn transport.Conn) *PlayerRecord {
	record, ok := that.players[conn]
	if !ok {
		record = &PlayerRecord{}
		that.players[conn] = record
	}

	return record
}

// Remove drops the record for a closed connection.
func (that *Registry) Remove(conn transport.Conn) {
	delete(that.players, conn)
}

// UsernameTaken reports whether any live record holds the username,
// case-insensitively.
func (that *Registry) UsernameTaken(username string) bool {
	for _, record := range that.players {
		if strings.EqualFold(record.Username, username) {
			return true
		}
	}

	return false
}

// Conns lists every registered connection, for the heartbeat sweep.
func (that *Registry) Conns() []transport.Conn {
	conns := make([]transport.Conn, 0, len(that.players))
	for conn := range that.players {
		conns = append(conns, conn)
	}

	return conns
}

// Len reports the number of live records.
func (that *Registry) Len() int {
	return len(that.players)
}
