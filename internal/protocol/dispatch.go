package protocol

import (
	"fmt"
	"strings"

	"github.com/cansrv/cansrv/internal/logger"
	"github.com/cansrv/cansrv/internal/supervisor"
)

const cansendUsage = "ERROR: Invalid CANSEND syntax. Usage: CANSEND#<id>#<payload>#<time_ms>#<bus> [priority 0-9]\n"
const sendTaskUsage = "ERROR: Invalid SEND_TASK syntax. Usage: SEND_TASK#<id>#<payload>#<delay_ms>#<bus> [priority 0-9]\n"

// dispatch matches line against the recognized command set by longest
// prefix (KILL_ALL_TASKS before KILL_ALL, CANSEND# before an unknown
// fallback) and returns the reply text and whether the session should
// close after replying.
func (s *Session) dispatch(line string) (reply string, shutdown bool) {
	switch {
	case line == "SHUTDOWN":
		return "", true

	case strings.HasPrefix(line, "CANSEND#"):
		return s.handleSchedule(line, "CANSEND", true), false

	case strings.HasPrefix(line, "SEND_TASK#"):
		return s.handleSchedule(line, "SEND_TASK", false), false

	case line == "KILL_ALL_TASKS":
		s.mgr.KillAll()
		return "All tasks killed\n", false

	case strings.HasPrefix(line, "KILL_TASK "):
		id := strings.TrimSpace(strings.TrimPrefix(line, "KILL_TASK "))
		if s.mgr.Kill(id) {
			return fmt.Sprintf("Task %s killed\n", id), false
		}
		return "Task not found\n", false

	case line == "KILL_THREAD" || strings.HasPrefix(line, "KILL_THREAD "):
		// Thread IDs are opaque strings here (uuid-suffixed session/worker
		// IDs), not the small integers the reference implementation parsed,
		// so there is no numeric-parse failure to reject. "Invalid" is
		// defined as an empty ID; an ID that parses but names a thread that
		// was never registered, or already exited, is treated the same as
		// any other Unregister no-op and still replies "Thread removed".
		tid := strings.TrimSpace(strings.TrimPrefix(line, "KILL_THREAD"))
		if tid == "" {
			return "Invalid thread ID\n", false
		}
		s.threads.Unregister(tid)
		return "Thread removed\n", false

	case line == "KILL_ALL":
		s.killAllPIDs()
		return "All processes killed.\n", false

	case strings.HasPrefix(line, "PAUSE "):
		id := strings.TrimSpace(strings.TrimPrefix(line, "PAUSE "))
		if s.mgr.Pause(id) {
			return fmt.Sprintf("Paused %s\n", id), false
		}
		return "Task not found\n", false

	case strings.HasPrefix(line, "RESUME "):
		id := strings.TrimSpace(strings.TrimPrefix(line, "RESUME "))
		if s.mgr.Resume(id) {
			return fmt.Sprintf("Resumed %s\n", id), false
		}
		return "Task not found\n", false

	case line == "LIST_TASKS":
		return s.listTasks(), false

	case line == "LIST_CAN_INTERFACES":
		return s.listCANInterfaces(), false

	case line == "LIST_THREADS":
		return s.listThreads(), false

	case strings.HasPrefix(line, "SET_LOG_LEVEL "):
		level := strings.TrimSpace(strings.TrimPrefix(line, "SET_LOG_LEVEL "))
		if logger.SetLevel(level) {
			return fmt.Sprintf("Log level set to %s\n", level), false
		}
		return "Invalid log level\n", false

	default:
		return fmt.Sprintf("Unknown command: %s\n", line), false
	}
}

// handleSchedule parses the shared CANSEND#/SEND_TASK# wire format
// "<id>#<payload>#<time>#<iface>[#<prio>]" and schedules a recurring
// (recurring=true) or single-shot task.
func (s *Session) handleSchedule(line, verb string, recurring bool) string {
	usage := cansendUsage
	if verb == "SEND_TASK" {
		usage = sendTaskUsage
	}

	body := strings.TrimPrefix(line, verb+"#")
	parts := strings.Split(body, "#")
	if len(parts) != 4 && len(parts) != 5 {
		return usage
	}

	rawID, payload, rawTime, iface := parts[0], parts[1], parts[2], strings.TrimSpace(parts[3])
	priority := defaultPriority
	if len(parts) == 5 {
		priority = parsePriority(parts[4])
	}

	if !s.ifaces.Contains(iface) {
		return fmt.Sprintf("ERROR: CAN interface '%s' is not available. Use LIST_CAN_INTERFACES to see available interfaces.\n", iface)
	}

	millis, err := parseMillis(rawTime)
	if err != nil {
		return "ERROR: Invalid time value\n"
	}
	if millis < 0 {
		return "ERROR: Time value must be non-negative\n"
	}

	id := parseID(rawID)
	argPayload := canPayload(id, payload)

	var taskID string
	if recurring {
		taskID = s.mgr.ScheduleRecurring(iface, argPayload, millis, priority)
	} else {
		taskID = s.mgr.ScheduleSingleShot(iface, argPayload, millis, priority)
	}

	return fmt.Sprintf("OK: %s scheduled with task ID: %s\n", verb, taskID)
}

func (s *Session) listTasks() string {
	var b strings.Builder
	b.WriteString("Active tasks:\n")
	for _, line := range s.mgr.List() {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *Session) listCANInterfaces() string {
	ifaces := s.ifaces.Refresh()
	if len(ifaces) == 0 {
		return "No CAN interfaces available\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Available CAN interfaces (%d):\n", len(ifaces))
	for _, name := range ifaces {
		b.WriteString("  " + name + "\n")
	}
	return b.String()
}

func (s *Session) listThreads() string {
	var b strings.Builder
	b.WriteString("Active threads:\n")
	for _, t := range s.threads.List() {
		fmt.Fprintf(&b, "  %s (%s)\n", t.ID, t.Kind)
	}
	return b.String()
}

// killAllPIDs implements KILL_ALL: a best-effort termination signal sent
// to every process-wide tracked PID, regardless of owning session. It
// does not touch task state, matching the preserved original behavior.
func (s *Session) killAllPIDs() {
	for _, pid := range s.pidReg.global.Snapshot() {
		_ = supervisor.Kill(pid)
	}
}
