// Package protocol implements the line-oriented TCP command surface:
// framing, longest-prefix command dispatch, and per-session cleanup.
package protocol

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cansrv/cansrv/internal/caniface"
	"github.com/cansrv/cansrv/internal/events"
	"github.com/cansrv/cansrv/internal/globalstate"
	"github.com/cansrv/cansrv/internal/logger"
	"github.com/cansrv/cansrv/internal/metrics"
	"github.com/cansrv/cansrv/internal/schedcore"
	"github.com/cansrv/cansrv/internal/supervisor"
	"github.com/cansrv/cansrv/internal/taskmgr"
)

// maxCommandBytes bounds a single read, matching the reference clients'
// one-command-per-recv behavior.
const maxCommandBytes = 10000

// sessionPIDRegistrar forwards PID bookkeeping to the process-wide
// registry while also keeping a local set so session teardown can signal
// only the PIDs this client's tasks spawned.
type sessionPIDRegistrar struct {
	global *globalstate.PIDRegistry

	mu   sync.Mutex
	live map[int]struct{}
}

func newSessionPIDRegistrar(global *globalstate.PIDRegistry) *sessionPIDRegistrar {
	return &sessionPIDRegistrar{global: global, live: make(map[int]struct{})}
}

func (s *sessionPIDRegistrar) RegisterPID(pid int, taskID string) {
	s.global.RegisterPID(pid, taskID)
	s.mu.Lock()
	s.live[pid] = struct{}{}
	s.mu.Unlock()
}

func (s *sessionPIDRegistrar) UnregisterPID(pid int) {
	s.global.UnregisterPID(pid)
	s.mu.Lock()
	delete(s.live, pid)
	s.mu.Unlock()
}

// snapshot returns the PIDs currently in flight for this session.
func (s *sessionPIDRegistrar) snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, 0, len(s.live))
	for pid := range s.live {
		out = append(out, pid)
	}
	return out
}

// Session owns one accepted TCP connection: its Task Manager, PID set,
// and thread-registry entry. One goroutine drives a Session end to end.
type Session struct {
	ID   string
	conn net.Conn
	log  zerolog.Logger
	ctx  context.Context

	mgr     *taskmgr.Manager
	ifaces  *caniface.Cache
	threads *globalstate.ThreadRegistry
	pidReg  *sessionPIDRegistrar
}

// NewSession wires a freshly accepted connection into a Task Manager and
// registers it in the thread registry under its own session ID. ctx
// bounds every subprocess this session's tasks ever spawn; cancel it on
// server shutdown to interrupt in-flight cansend invocations.
func NewSession(ctx context.Context, conn net.Conn, queue *schedcore.Queue, ifaces *caniface.Cache, threads *globalstate.ThreadRegistry, globalPIDs *globalstate.PIDRegistry, pub events.Publisher) *Session {
	id := "client-" + uuid.New().String()[:8]
	pidReg := newSessionPIDRegistrar(globalPIDs)

	s := &Session{
		ID:      id,
		conn:    conn,
		log:     logger.WithClient(id),
		ctx:     ctx,
		ifaces:  ifaces,
		threads: threads,
		pidReg:  pidReg,
	}
	s.mgr = taskmgr.NewManager(ctx, id, queue, pidReg, pub)
	threads.Register(id, "client")
	metrics.SetActiveSessions(float64(threads.Count()))
	return s
}

// Serve drives the Connected -> (Receiving <-> Dispatching) -> Closing
// state machine for this session until the connection closes or SHUTDOWN
// is received, then runs teardown. Framing matches a raw recv() loop: a
// single Read yields at most one logical command, whatever arrived in
// that buffer, rather than waiting for a newline delimiter. A client
// that never terminates its write simply never produces a command; it
// does not block other sessions.
func (s *Session) Serve() {
	defer s.teardown()

	buf := make([]byte, maxCommandBytes)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			line := strings.TrimRight(string(buf[:n]), "\r\n")
			line = strings.TrimSpace(line)
			if line != "" {
				metrics.RecordCommandReceived(commandVerb(line))
				reply, shutdown := s.dispatch(line)
				if reply != "" {
					if _, werr := s.conn.Write([]byte(reply)); werr != nil {
						return
					}
				}
				if shutdown {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

// teardown implements session-end cleanup: every owned task is killed,
// in-flight PIDs are signaled, and the thread registry entry is removed.
func (s *Session) teardown() {
	s.mgr.KillAll()
	for _, pid := range s.pidReg.snapshot() {
		if kerr := supervisor.Kill(pid); kerr != nil {
			s.log.Debug().Int("pid", pid).Err(kerr).Msg("signal to in-flight subprocess failed")
		}
	}
	s.threads.Unregister(s.ID)
	metrics.SetActiveSessions(float64(s.threads.Count()))
	_ = s.conn.Close()
	s.log.Info().Msg("session closed")
}
