package protocol

import (
	"context"
	"net"
	"time"

	"github.com/cansrv/cansrv/internal/caniface"
	"github.com/cansrv/cansrv/internal/events"
	"github.com/cansrv/cansrv/internal/globalstate"
	"github.com/cansrv/cansrv/internal/logger"
	"github.com/cansrv/cansrv/internal/schedcore"
)

// acceptErrorCooldown throttles the accept loop after a transient Accept
// error instead of busy-looping.
const acceptErrorCooldown = 100 * time.Millisecond

// Server owns the TCP listener and spawns one Session per accepted
// connection. It holds no per-client state itself.
type Server struct {
	Listener  net.Listener
	Queue     *schedcore.Queue
	Interfaces *caniface.Cache
	Threads   *globalstate.ThreadRegistry
	PIDs      *globalstate.PIDRegistry
	Publisher events.Publisher
}

// Serve runs the accept loop until ctx is canceled or the listener is
// closed. Each accepted connection is handled on its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Listener.Close()
	}()

	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error().Err(err).Msg("listener accept error")
			time.Sleep(acceptErrorCooldown)
			continue
		}

		session := NewSession(ctx, conn, s.Queue, s.Interfaces, s.Threads, s.PIDs, s.Publisher)
		logger.Info().Str("session_id", session.ID).Str("remote_addr", conn.RemoteAddr().String()).Msg("client connected")
		go session.Serve()
	}
}
