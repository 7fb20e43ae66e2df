package server

import (
	"log/slog"
	"strings"

	"github.com/roomloop/tictactoe-server/internal/protocol"
	"github.com/roomloop/tictactoe-server/internal/transport"
)

// IdentifyRoom is the first room every new connection joins. The only legal
// message is an identify request; once the username is accepted the
// connection moves on to matchmaking.
//
// A connected client that never sends anything stays here until it
// disconnects, which the next failed read detects in due time.
type IdentifyRoom struct {
	room
}

func newIdentifyRoom(directory *Directory, logger *slog.Logger) *IdentifyRoom {
	that := &IdentifyRoom{
		room: newRoom(protocol.RoomIdentify, directory, logger),
	}

	that.handlers[protocol.ActionIdentifyRequest] = that.handleIdentify

	return that
}

func (that *IdentifyRoom) handleIdentify(msg *protocol.Message, sender transport.Conn) {
	var req protocol.IdentifyRequest
	if err := msg.Decode(&req); err != nil {
		that.logger.Info("dropping member, malformed identify request", "error", err)
		that.handleDisconnect(sender)
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		return
	}

	if that.directory.registry.UsernameTaken(username) {
		that.send(sender, protocol.MustNew(protocol.ActionIdentifyResponse,
			protocol.IdentifyResponse{Result: protocol.ResultNameTaken}))
		return
	}

	record := that.directory.registry.Record(sender)
	record.Username = username

	that.logger.Info("client identified, moving to matchmaking", "username", username)

	that.send(sender, protocol.MustNew(protocol.ActionIdentifyResponse,
		protocol.IdentifyResponse{Result: protocol.ResultAccepted}))

	that.RemoveMember(sender)
	that.directory.matchmaking.AddMember(sender)
}
