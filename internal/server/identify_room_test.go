package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roomloop/tictactoe-server/internal/protocol"
)

func TestIdentifyRoom(t *testing.T) {
	t.Run("Accepted username moves the client to matchmaking", func(t *testing.T) {
		// Given: a fresh directory and a connecting client
		directory, accepts := newTestDirectory()
		conn := newFakeConn("bob-addr")

		// When: the client identifies as bob
		identify(t, directory, accepts, conn, "bob")

		// Then: the client is a matchmaking member and was told so
		require.True(t, directory.matchmaking.isMember(conn))
		require.False(t, directory.identify.isMember(conn))

		var entered protocol.RoomEntered
		conn.lastSent(t, protocol.ActionRoomEntered, &entered)
		require.Equal(t, protocol.RoomMatchmaking, entered.Room)
	})

	t.Run("Duplicate username is rejected case-insensitively", func(t *testing.T) {
		// Given: bob is already identified
		directory, accepts := newTestDirectory()
		bob := newFakeConn("bob-addr")
		identify(t, directory, accepts, bob, "bob")

		// When: a second client identifies as BOB
		imposter := newFakeConn("imposter-addr")
		accepts <- imposter
		imposter.push(protocol.ActionIdentifyRequest, protocol.IdentifyRequest{Username: "BOB"})
		directory.tick(testTick)

		// Then: the request is rejected and the client stays put
		var resp protocol.IdentifyResponse
		imposter.lastSent(t, protocol.ActionIdentifyResponse, &resp)
		require.Equal(t, protocol.ResultNameTaken, resp.Result)
		require.True(t, directory.identify.isMember(imposter))
	})

	t.Run("Blank username is silently ignored", func(t *testing.T) {
		// Given: a connecting client
		directory, accepts := newTestDirectory()
		conn := newFakeConn("blank-addr")
		accepts <- conn

		// When: it sends a whitespace-only username
		conn.push(protocol.ActionIdentifyRequest, protocol.IdentifyRequest{Username: "   "})
		directory.tick(testTick)

		// Then: no response, and the client is still in the identify room
		require.Equal(t, 0, conn.countSent(protocol.ActionIdentifyResponse))
		require.True(t, directory.identify.isMember(conn))
	})

	t.Run("Illegal action drops the connection without a reply", func(t *testing.T) {
		// Given: a connecting client
		directory, accepts := newTestDirectory()
		conn := newFakeConn("rude-addr")
		accepts <- conn

		// When: it sends a move request instead of identifying
		conn.push(protocol.ActionMoveRequest, protocol.MoveRequest{Cell: 0})
		directory.tick(testTick)

		// Then: the connection is gone, with no diagnostic sent back
		require.False(t, directory.identify.isMember(conn))
		require.True(t, conn.closed)
		require.Equal(t, 0, conn.countSent(protocol.ActionIdentifyResponse))
	})
}
