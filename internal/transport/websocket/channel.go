package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roomloop/tictactoe-server/internal/apperror"
	"github.com/roomloop/tictactoe-server/internal/protocol"
)

const (
	inboundBuffer = 64
	writeTimeout  = 5 * time.Second
)

// channel adapts a *websocket.Conn to transport.Conn. One envelope per text
// frame; the reader pump mirrors the TCP channel's.
type channel struct {
	conn    *websocket.Conn
	inbound chan *protocol.Message
	done    chan struct{}
	readErr error
	once    sync.Once
}

func newChannel(conn *websocket.Conn) *channel {
	that := &channel{
		conn:    conn,
		inbound: make(chan *protocol.Message, inboundBuffer),
		done:    make(chan struct{}),
	}

	go that.readLoop()

	return that
}

func (that *channel) readLoop() {
	for {
		_, raw, err := that.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				that.readErr = apperror.ErrChannelClosed
			} else {
				that.readErr = fmt.Errorf("failed to read frame: %w", err)
			}
			close(that.inbound)
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			that.readErr = fmt.Errorf("failed to unmarshal envelope: %w", err)
			close(that.inbound)
			return
		}

		// A full buffer must not pin this goroutine past Close: once the
		// game loop drops the connection, nothing will ever drain inbound.
		select {
		case that.inbound <- &msg:
		case <-that.done:
			that.readErr = apperror.ErrChannelClosed
			close(that.inbound)
			return
		}
	}
}

func (that *channel) TryReceive() (*protocol.Message, error) {
	select {
	case msg, ok := <-that.inbound:
		if !ok {
			return nil, that.readErr
		}
		return msg, nil
	default:
		return nil, nil
	}
}

func (that *channel) Send(msg *protocol.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err = that.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

func (that *channel) Close() error {
	var err error
	that.once.Do(func() {
		close(that.done)
		err = that.conn.Close()
	})
	return err
}

func (that *channel) RemoteAddr() string {
	return that.conn.RemoteAddr().String()
}
