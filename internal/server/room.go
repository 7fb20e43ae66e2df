package server

import (
	"log/slog"
	"slices"

	"github.com/roomloop/tictactoe-server/internal/protocol"
	"github.com/roomloop/tictactoe-server/internal/transport"
)

// handlerFunc processes one inbound message from a room member.
type handlerFunc func(msg *protocol.Message, sender transport.Conn)

// room is the base capability every phase room builds on: an ordered member
// list (insertion order decides seats), a dispatch table narrowing which
// actions are legal in this phase, and disconnect detection.
//
// A message whose action has no handler is a protocol violation: the sender
// is dropped outright, with nothing sent back.
type room struct {
	kind      string
	logger    *slog.Logger
	directory *Directory
	members   []transport.Conn
	handlers  map[string]handlerFunc

	// onDisconnect lets the concrete room react after a member's channel
	// failed and the member was removed (e.g. declare the survivor winner).
	onDisconnect func(conn transport.Conn)
}

func newRoom(kind string, directory *Directory, logger *slog.Logger) room {
	return room{
		kind:      kind,
		logger:    logger.With("room", kind),
		directory: directory,
		handlers:  make(map[string]handlerFunc),
	}
}

// AddMember appends conn and notifies it of its new room.
func (that *room) AddMember(conn transport.Conn) {
	that.members = append(that.members, conn)

	that.send(conn, protocol.MustNew(protocol.ActionRoomEntered, protocol.RoomEntered{Room: that.kind}))
}

// RemoveMember removes conn from the member list. It does not relocate or
// close the connection.
func (that *room) RemoveMember(conn transport.Conn) {
	index := slices.Index(that.members, conn)
	if index < 0 {
		return
	}

	that.members = slices.Delete(that.members, index, index+1)
}

// Broadcast sends a message to every current member, in membership order.
func (that *room) Broadcast(msg *protocol.Message) {
	for _, member := range slices.Clone(that.members) {
		that.send(member, msg)
	}
}

// Update polls every member once: drains queued inbound messages into the
// dispatch table and treats a read failure as a disconnect. The member list
// is snapshotted first, since handlers relocate members mid-iteration.
func (that *room) Update() {
	for _, member := range slices.Clone(that.members) {
		for that.isMember(member) {
			msg, err := member.TryReceive()
			if err != nil {
				that.logger.Info("member channel failed", "remote", member.RemoteAddr(), "error", err)
				that.handleDisconnect(member)
				break
			}

			if msg == nil {
				break
			}

			that.dispatch(msg, member)
		}
	}
}

func (that *room) dispatch(msg *protocol.Message, sender transport.Conn) {
	handler, ok := that.handlers[msg.Action]
	if !ok {
		// Don't tell the member what we expected, just close and remove.
		// The disconnect hook still runs, so an active match resolves.
		that.logger.Info("dropping member, illegal action for this room",
			"action", msg.Action, "remote", sender.RemoteAddr())
		that.handleDisconnect(sender)
		return
	}

	handler(msg, sender)
}

// handleDisconnect removes the member, cancels everything scheduled under its
// connection, and lets the concrete room react.
func (that *room) handleDisconnect(conn transport.Conn) {
	that.RemoveMember(conn)
	that.directory.dropConnection(conn)

	if that.onDisconnect != nil {
		that.onDisconnect(conn)
	}
}

func (that *room) isMember(conn transport.Conn) bool {
	return slices.Contains(that.members, conn)
}

func (that *room) memberCount() int {
	return len(that.members)
}

func (that *room) send(conn transport.Conn, msg *protocol.Message) {
	if err := conn.Send(msg); err != nil {
		// A failed write surfaces as a failed read on the next Update.
		that.logger.Info("failed to send to member", "remote", conn.RemoteAddr(), "error", err)
	}
}
