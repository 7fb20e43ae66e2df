package server

import (
	"log/slog"

	"github.com/roomloop/tictactoe-server/internal/protocol"
)

// MatchmakingRoom holds identified clients until two are available, then
// pairs them into a fresh match room. Clients have nothing legal to say
// here; the room only receives post-match returnees and lobby notices flow
// the other way.
type MatchmakingRoom struct {
	room
}

func newMatchmakingRoom(directory *Directory, logger *slog.Logger) *MatchmakingRoom {
	return &MatchmakingRoom{
		room: newRoom(protocol.RoomMatchmaking, directory, logger),
	}
}

// Update runs the base poll, then pairs waiting members two at a time in
// arrival order.
func (that *MatchmakingRoom) Update() {
	that.room.Update()

	for that.memberCount() >= 2 {
		first, second := that.members[0], that.members[1]

		that.RemoveMember(first)
		that.RemoveMember(second)

		match := that.directory.createMatchRoom()
		match.StartGame(first, second)
	}
}
