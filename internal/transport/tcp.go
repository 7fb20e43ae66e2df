package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/roomloop/tictactoe-server/internal/apperror"
	"github.com/roomloop/tictactoe-server/internal/protocol"
)

const (
	inboundBuffer = 64
	writeTimeout  = 5 * time.Second
	maxLineBytes  = 64 * 1024
)

// Channel wraps a net.Conn into a Conn. Wire format is one JSON envelope per
// line. A reader goroutine pumps inbound messages into a buffered channel so
// TryReceive is a plain non-blocking select; the pump stores its terminal
// error and closes the channel, which is the happens-before edge the game
// loop reads it through.
type Channel struct {
	conn    net.Conn
	inbound chan *protocol.Message
	done    chan struct{}
	readErr error
	once    sync.Once
}

// NewChannel wraps conn and starts its reader pump.
func NewChannel(conn net.Conn) *Channel {
	that := &Channel{
		conn:    conn,
		inbound: make(chan *protocol.Message, inboundBuffer),
		done:    make(chan struct{}),
	}

	go that.readLoop()

	return that
}

func (that *Channel) readLoop() {
	scanner := bufio.NewScanner(that.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	for scanner.Scan() {
		var msg protocol.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
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

	if err := scanner.Err(); err != nil {
		that.readErr = fmt.Errorf("failed to read envelope: %w", err)
	} else {
		that.readErr = apperror.ErrChannelClosed
	}

	close(that.inbound)
}

// TryReceive pops one queued message, or reports the terminal read error once
// the pump has stopped.
func (that *Channel) TryReceive() (*protocol.Message, error) {
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

// Send writes one envelope followed by a newline.
func (that *Channel) Send(msg *protocol.Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if _, err = that.conn.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}

	return nil
}

func (that *Channel) Close() error {
	var err error
	that.once.Do(func() {
		close(that.done)
		err = that.conn.Close()
	})
	return err
}

func (that *Channel) RemoteAddr() string {
	return that.conn.RemoteAddr().String()
}
