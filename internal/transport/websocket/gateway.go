// Package websocket exposes the same message channel over a websocket
// endpoint, for browser clients. Upgraded connections are wrapped into the
// transport.Conn interface and fed into the same accept queue the TCP
// listener uses, so the game loop never knows the difference.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roomloop/tictactoe-server/internal/transport"
	"github.com/roomloop/tictactoe-server/pkg/handlers"
)

// Gateway upgrades HTTP requests on /ws and queues the resulting connections.
type Gateway struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	accepts  chan<- transport.Conn
	srv      *http.Server
}

func NewGateway(logger *slog.Logger, port string, accepts chan<- transport.Conn) *Gateway {
	that := &Gateway{
		logger: logger.With("component", "ws-gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		accepts: accepts,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.handleUpgrade)
	mux.HandleFunc("/ping", handlers.PingHandler)

	that.srv = &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		IdleTimeout: 30 * time.Second,
	}

	return that
}

// Start serves until ctx is cancelled.
func (that *Gateway) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = that.srv.Shutdown(shutdownCtx)
	}()

	if err := that.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start websocket gateway: %w", err)
	}

	return nil
}

func (that *Gateway) handleUpgrade(writer http.ResponseWriter, req *http.Request) {
	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		that.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	channel := newChannel(conn)

	select {
	case that.accepts <- channel:
		that.logger.Info("accepted new websocket client", "remote", channel.RemoteAddr())
	default:
		that.logger.Warn("accept queue full, dropping websocket client", "remote", channel.RemoteAddr())
		_ = channel.Close()
	}
}
