package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
)

// Listener accepts TCP clients and pushes them onto a shared bounded accept
// queue. The game loop drains the queue at the top of every tick; when the
// queue is full the new client is closed instead of blocking the acceptor.
type Listener struct {
	logger  *slog.Logger
	ln      net.Listener
	accepts chan<- Conn
}

// Listen binds addr and starts the accept pump.
func Listen(logger *slog.Logger, addr string, accepts chan<- Conn) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	that := &Listener{
		logger:  logger.With("component", "listener", "addr", addr),
		ln:      ln,
		accepts: accepts,
	}

	go that.acceptLoop()

	return that, nil
}

func (that *Listener) acceptLoop() {
	for {
		conn, err := that.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			that.logger.Error("failed to accept connection", "error", err)
			continue
		}

		channel := NewChannel(conn)

		select {
		case that.accepts <- channel:
			that.logger.Info("accepted new client", "remote", channel.RemoteAddr())
		default:
			that.logger.Warn("accept queue full, dropping client", "remote", channel.RemoteAddr())
			_ = channel.Close()
		}
	}
}

// Close stops accepting. Already-queued connections stay queued.
func (that *Listener) Close() error {
	return that.ln.Close()
}

// Serve blocks until ctx is cancelled, then closes the listener.
func (that *Listener) Serve(ctx context.Context) error {
	<-ctx.Done()
	return that.Close()
}
