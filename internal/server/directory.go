// Package server holds the room set, the player registry, and the fixed-order
// game loop that drives them. One goroutine owns every mutation; rooms,
// matches, and delayed workflows all run inside its tick.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/roomloop/tictactoe-server/internal/protocol"
	"github.com/roomloop/tictactoe-server/internal/scheduler"
	"github.com/roomloop/tictactoe-server/internal/transport"
)

// Options tune the directory's timing.
type Options struct {
	// HeartbeatInterval is how often the liveness probe goes out.
	HeartbeatInterval time.Duration

	// LobbyReturnDelay is how long a resolved match lingers before its
	// members return to matchmaking.
	LobbyReturnDelay time.Duration
}

// Directory owns every room and the player registry, and runs the per-tick
// update order: accept pending connections, update identify, matchmaking and
// all live matches, sweep heartbeats, then tick the scheduler.
type Directory struct {
	logger    *slog.Logger
	scheduler *scheduler.Scheduler
	registry  *Registry
	accepts   <-chan transport.Conn

	identify    *IdentifyRoom
	matchmaking *MatchmakingRoom
	matches     []*MatchRoom

	heartbeatInterval time.Duration
	sinceHeartbeat    time.Duration
	lobbyReturnDelay  time.Duration
}

func NewDirectory(logger *slog.Logger, accepts <-chan transport.Conn, opts Options) *Directory {
	that := &Directory{
		logger:            logger.With("component", "directory"),
		scheduler:         scheduler.New(logger),
		registry:          NewRegistry(),
		accepts:           accepts,
		heartbeatInterval: opts.HeartbeatInterval,
		lobbyReturnDelay:  opts.LobbyReturnDelay,
	}

	that.identify = newIdentifyRoom(that, logger)
	that.matchmaking = newMatchmakingRoom(that, logger)

	return that
}

// Run drives the loop at the given period until ctx is cancelled.
func (that *Directory) Run(ctx context.Context, period time.Duration) error {
	that.logger.Info("game loop started", "period", period)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			that.logger.Info("game loop stopped")
			return nil
		case now := <-ticker.C:
			that.tick(now.Sub(last))
			last = now
		}
	}
}

// tick runs one frame in the fixed order.
func (that *Directory) tick(delta time.Duration) {
	that.acceptPending()

	that.identify.Update()
	that.matchmaking.Update()

	for _, match := range that.matchesSnapshot() {
		match.Update()
	}

	that.destroyEmptyMatches()

	that.heartbeat(delta)

	that.scheduler.Tick(delta)
}

// acceptPending drains whatever the listeners have queued, without waiting
// for more.
func (that *Directory) acceptPending() {
	for {
		select {
		case conn := <-that.accepts:
			that.identify.AddMember(conn)
		default:
			return
		}
	}
}

// heartbeat probes every registered connection once per interval. No reply is
// awaited; a dead connection surfaces on its next failed read.
func (that *Directory) heartbeat(delta time.Duration) {
	that.sinceHeartbeat += delta
	if that.sinceHeartbeat < that.heartbeatInterval || that.registry.Len() == 0 {
		return
	}

	that.sinceHeartbeat = 0

	probe := protocol.MustNew(protocol.ActionHeartbeatProbe, nil)
	for _, conn := range that.registry.Conns() {
		if err := conn.Send(probe); err != nil {
			that.logger.Debug("heartbeat send failed", "remote", conn.RemoteAddr(), "error", err)
		}
	}

	that.logger.Debug("heartbeat sent", "connections", that.registry.Len())
}

// createMatchRoom registers a fresh match room.
func (that *Directory) createMatchRoom() *MatchRoom {
	match := newMatchRoom(uuid.NewString(), that, that.logger)
	that.matches = append(that.matches, match)

	that.logger.Info("match room created", "match", match.ID(), "live_matches", len(that.matches))

	return match
}

// destroyEmptyMatches drops match rooms whose members have all left and
// cancels anything still scheduled under them.
func (that *Directory) destroyEmptyMatches() {
	kept := that.matches[:0]
	for _, match := range that.matches {
		if match.memberCount() > 0 || match.phase != phaseEnded {
			kept = append(kept, match)
			continue
		}

		that.scheduler.CancelOwner(match)
		that.logger.Info("match room destroyed", "match", match.ID())
	}

	that.matches = kept
}

// dropConnection severs every trace of a connection: its player record, every
// task scheduled under it, and the channel itself. Called by rooms when a
// member is discarded, so a stale delayed callback can never fire against a
// party that already left.
func (that *Directory) dropConnection(conn transport.Conn) {
	that.registry.Remove(conn)
	that.scheduler.CancelOwner(conn)

	if err := conn.Close(); err != nil {
		that.logger.Debug("failed to close connection", "remote", conn.RemoteAddr(), "error", err)
	}
}

func (that *Directory) matchesSnapshot() []*MatchRoom {
	snapshot := make([]*MatchRoom, len(that.matches))
	copy(snapshot, that.matches)
	return snapshot
}
