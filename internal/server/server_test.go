package server

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roomloop/tictactoe-server/internal/protocol"
	"github.com/roomloop/tictactoe-server/internal/transport"
)

const testTick = 100 * time.Millisecond

var errConnFailed = errors.New("connection failed")

// fakeConn is a scriptable transport.Conn: tests queue inbound messages and
// inspect everything the server sent back.
type fakeConn struct {
	addr    string
	inbound []*protocol.Message
	sent    []*protocol.Message
	failed  bool
	closed  bool
}

func newFakeConn(addr string) *fakeConn {
	return &fakeConn{addr: addr}
}

func (that *fakeConn) push(action string, payload any) {
	that.inbound = append(that.inbound, protocol.MustNew(action, payload))
}

func (that *fakeConn) TryReceive() (*protocol.Message, error) {
	if that.failed {
		return nil, errConnFailed
	}

	if len(that.inbound) == 0 {
		return nil, nil
	}

	msg := that.inbound[0]
	that.inbound = that.inbound[1:]

	return msg, nil
}

func (that *fakeConn) Send(msg *protocol.Message) error {
	if that.failed {
		return errConnFailed
	}

	that.sent = append(that.sent, msg)

	return nil
}

func (that *fakeConn) Close() error {
	that.closed = true
	return nil
}

func (that *fakeConn) RemoteAddr() string {
	return that.addr
}

// countSent counts messages sent to this connection with the given action.
func (that *fakeConn) countSent(action string) int {
	count := 0
	for _, msg := range that.sent {
		if msg.Action == action {
			count++
		}
	}
	return count
}

// lastSent decodes the most recent message with the given action into v.
func (that *fakeConn) lastSent(t *testing.T, action string, v any) {
	t.Helper()

	for i := len(that.sent) - 1; i >= 0; i-- {
		if that.sent[i].Action == action {
			require.NoError(t, that.sent[i].Decode(v))
			return
		}
	}

	t.Fatalf("no %s message was sent to %s", action, that.addr)
}

func newTestDirectory() (*Directory, chan transport.Conn) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accepts := make(chan transport.Conn, 8)

	directory := NewDirectory(logger, accepts, Options{
		HeartbeatInterval: 3 * time.Second,
		LobbyReturnDelay:  2 * time.Second,
	})

	return directory, accepts
}

// identify connects a fake client and walks it through the identify room.
func identify(t *testing.T, directory *Directory, accepts chan transport.Conn, conn *fakeConn, username string) {
	t.Helper()

	accepts <- conn
	conn.push(protocol.ActionIdentifyRequest, protocol.IdentifyRequest{Username: username})
	directory.tick(testTick)

	var resp protocol.IdentifyResponse
	conn.lastSent(t, protocol.ActionIdentifyResponse, &resp)
	require.Equal(t, protocol.ResultAccepted, resp.Result)
}

// startMatch identifies alice and bob and returns the match pairing them,
// with alice in seat 1 and bob in seat 2.
func startMatch(t *testing.T) (*Directory, chan transport.Conn, *fakeConn, *fakeConn, *MatchRoom) {
	t.Helper()

	directory, accepts := newTestDirectory()

	alice := newFakeConn("alice-addr")
	bob := newFakeConn("bob-addr")

	accepts <- alice
	accepts <- bob
	alice.push(protocol.ActionIdentifyRequest, protocol.IdentifyRequest{Username: "alice"})
	bob.push(protocol.ActionIdentifyRequest, protocol.IdentifyRequest{Username: "bob"})

	directory.tick(testTick)

	require.Len(t, directory.matches, 1)
	match := directory.matches[0]
	require.ElementsMatch(t, []transport.Conn{alice, bob}, match.members)

	var entered protocol.RoomEntered
	alice.lastSent(t, protocol.ActionRoomEntered, &entered)
	require.Equal(t, protocol.RoomMatch, entered.Room)

	return directory, accepts, alice, bob, match
}

// move queues a move request and runs one tick.
func move(directory *Directory, conn *fakeConn, cell int) {
	conn.push(protocol.ActionMoveRequest, protocol.MoveRequest{Cell: cell})
	directory.tick(testTick)
}
