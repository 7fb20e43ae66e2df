package server

import (
	"fmt"
	"log/slog"

	"github.com/roomloop/tictactoe-server/internal/game"
	"github.com/roomloop/tictactoe-server/internal/protocol"
	"github.com/roomloop/tictactoe-server/internal/scheduler"
	"github.com/roomloop/tictactoe-server/internal/transport"
)

type matchPhase int

const (
	phaseWaitingToStart matchPhase = iota
	phaseInPlay
	phaseEnded
)

// Resolution causes carried into the lobby notice.
const (
	causeRageQuit = "Rage Quit"
	causeConcede  = "Conceding"
)

// MatchRoom runs one two-player match: WaitingToStart → InPlay → Ended.
// Seats and usernames are captured at StartGame and never recomputed, so a
// mid-resolution removal cannot shift the survivor's identity.
//
// Every ending — win, draw, concession, disconnect — converges on resolve,
// which announces the winner, marks the room Ended, and schedules the
// delayed relocation of the remaining members back to matchmaking.
type MatchRoom struct {
	room

	id    string
	board *game.Board
	phase matchPhase
	seats map[transport.Conn]int
	names map[int]string
}

func newMatchRoom(id string, directory *Directory, logger *slog.Logger) *MatchRoom {
	that := &MatchRoom{
		room:  newRoom(protocol.RoomMatch, directory, logger.With("match", id)),
		id:    id,
		board: game.NewBoard(),
		seats: make(map[transport.Conn]int),
		names: make(map[int]string),
	}

	that.handlers[protocol.ActionMoveRequest] = that.handleMove
	that.handlers[protocol.ActionPlayersRequest] = that.handlePlayersInfo
	that.handlers[protocol.ActionWhoAmIRequest] = that.handleWhoAmI
	that.handlers[protocol.ActionConcedeRequest] = that.handleConcede

	that.onDisconnect = that.memberDisconnected

	return that
}

// ID is the match identifier clients see in announcements.
func (that *MatchRoom) ID() string {
	return that.id
}

// StartGame seats both players and opens play. Calling it on a room that is
// not waiting to start is a programmer error, not a runtime condition.
func (that *MatchRoom) StartGame(first, second transport.Conn) {
	if that.phase != phaseWaitingToStart {
		panic(fmt.Sprintf("StartGame on match %s in phase %d", that.id, that.phase))
	}

	that.phase = phaseInPlay

	that.seats[first] = game.Seat1
	that.seats[second] = game.Seat2
	that.names[game.Seat1] = that.directory.registry.Record(first).Username
	that.names[game.Seat2] = that.directory.registry.Record(second).Username

	that.AddMember(first)
	that.AddMember(second)

	that.logger.Info("match started",
		"seat1", that.names[game.Seat1], "seat2", that.names[game.Seat2])
}

func (that *MatchRoom) handleMove(msg *protocol.Message, sender transport.Conn) {
	if that.phase == phaseEnded {
		return
	}

	var req protocol.MoveRequest
	if err := msg.Decode(&req); err != nil {
		that.logger.Info("dropping member, malformed move request", "error", err)
		that.handleDisconnect(sender)
		return
	}

	seat := that.seats[sender]

	if err := that.board.MakeMove(seat, req.Cell); err != nil {
		// Occupied or out-of-range cells are ignored, nothing to announce.
		that.logger.Debug("ignoring move", "seat", seat, "cell", req.Cell, "error", err)
		return
	}

	that.Broadcast(protocol.MustNew(protocol.ActionMoveResult,
		protocol.MoveResult{Seat: seat, Board: that.board.Cells()}))

	if winner := that.board.Winner(); winner != 0 {
		that.resolve(winner, "")
		return
	}

	if that.board.IsFull() {
		that.resolve(0, "")
	}
}

func (that *MatchRoom) handlePlayersInfo(_ *protocol.Message, sender transport.Conn) {
	var players protocol.PlayersResponse
	for seat := game.Seat1; seat <= game.Seat2; seat++ {
		players.Players[seat-1] = protocol.PlayerInfo{
			Seat:     seat,
			Username: that.names[seat],
		}
	}

	that.send(sender, protocol.MustNew(protocol.ActionPlayersResponse, players))
}

func (that *MatchRoom) handleWhoAmI(_ *protocol.Message, sender transport.Conn) {
	seat := that.seats[sender]

	that.send(sender, protocol.MustNew(protocol.ActionWhoAmIResponse,
		protocol.WhoAmIResponse{Seat: seat, Username: that.names[seat]}))
}

func (that *MatchRoom) handleConcede(_ *protocol.Message, sender transport.Conn) {
	if that.phase == phaseEnded {
		return
	}

	that.resolve(otherSeat(that.seats[sender]), causeConcede)
}

// memberDisconnected declares the remaining member winner. An abrupt
// departure never leaves a match unresolved.
func (that *MatchRoom) memberDisconnected(transport.Conn) {
	if that.phase != phaseInPlay {
		return
	}

	winnerSeat := 0
	if that.memberCount() > 0 {
		winnerSeat = that.seats[that.members[0]]
	}

	that.resolve(winnerSeat, causeRageQuit)
}

// resolve is the single ending routine: announce the winner (seat 0 means a
// draw), mark the match Ended, then schedule the delayed trip back to
// matchmaking. Runs at most once per match.
func (that *MatchRoom) resolve(winnerSeat int, cause string) {
	if that.phase == phaseEnded {
		return
	}

	that.Broadcast(protocol.MustNew(protocol.ActionWinner, protocol.WinnerAnnouncement{
		WinnerSeat:     winnerSeat,
		WinnerUsername: that.names[winnerSeat],
		MatchID:        that.id,
	}))

	that.phase = phaseEnded

	that.logger.Info("match resolved", "winner_seat", winnerSeat, "cause", cause)

	notice := that.noticeText(winnerSeat, cause)
	delay := that.directory.lobbyReturnDelay

	that.directory.scheduler.Schedule(that,
		func() scheduler.Instruction {
			return scheduler.Wait(delay)
		},
		func() scheduler.Instruction {
			that.sendMembersToLobby()
			that.directory.matchmaking.Broadcast(protocol.MustNew(protocol.ActionLobbyNotice,
				protocol.LobbyNotice{Text: notice}))
			return nil
		},
	)
}

func (that *MatchRoom) sendMembersToLobby() {
	for _, member := range that.membersSnapshot() {
		that.RemoveMember(member)
		that.directory.matchmaking.AddMember(member)
	}
}

func (that *MatchRoom) membersSnapshot() []transport.Conn {
	snapshot := make([]transport.Conn, len(that.members))
	copy(snapshot, that.members)
	return snapshot
}

func (that *MatchRoom) noticeText(winnerSeat int, cause string) string {
	if winnerSeat == 0 {
		return fmt.Sprintf("===> match %s ended in a draw between %s and %s",
			that.id, that.names[game.Seat1], that.names[game.Seat2])
	}

	winner := that.names[winnerSeat]
	loser := that.names[otherSeat(winnerSeat)]

	if cause == "" {
		return fmt.Sprintf("===> %s won %s in match %s", winner, loser, that.id)
	}

	return fmt.Sprintf("===> %s won %s by %s in match %s", winner, loser, cause, that.id)
}

func otherSeat(seat int) int {
	if seat == game.Seat1 {
		return game.Seat2
	}
	return game.Seat1
}
