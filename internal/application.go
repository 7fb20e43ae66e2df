package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roomloop/tictactoe-server/internal/config"
	"github.com/roomloop/tictactoe-server/internal/server"
	"github.com/roomloop/tictactoe-server/internal/transport"
	"github.com/roomloop/tictactoe-server/internal/transport/websocket"
)

// RunApp - wires the transports to the game loop and runs until a signal or
// a transport failure stops it. The loop itself is the only goroutine that
// touches rooms, the registry, or the scheduler.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	// Bounded accept queue shared by both transports; the game loop drains
	// it at the top of every tick.
	accepts := make(chan transport.Conn, conf.Game.AcceptBacklog)

	listener, err := transport.Listen(logger, ":"+conf.TCPPort, accepts)
	if err != nil {
		return fmt.Errorf("could not start TCP listener: %w", err)
	}
	go func() {
		if err := listener.Serve(ctx); err != nil {
			log.Error("TCP listener close error", "error", err)
		}
	}()

	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting websocket gateway", "port", conf.WSPort)
		gateway := websocket.NewGateway(logger, conf.WSPort, accepts)
		if wsErr := gateway.Start(ctx); wsErr != nil {
			log.Error("websocket gateway error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	directory := server.NewDirectory(logger, accepts, server.Options{
		HeartbeatInterval: conf.Game.HeartbeatInterval,
		LobbyReturnDelay:  conf.Game.LobbyReturnDelay,
	})

	loopErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting game loop", "tcp_port", conf.TCPPort)
		if loopErr := directory.Run(ctx, conf.Game.TickInterval); loopErr != nil {
			loopErrCh <- loopErr
		}
	}()

	select {
	case err = <-wsErrCh:
		return fmt.Errorf("websocket gateway error: %w", err)
	case err = <-loopErrCh:
		return fmt.Errorf("game loop error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
