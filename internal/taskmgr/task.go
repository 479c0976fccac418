// Package taskmgr implements the per-client task lifecycle: assigning
// task IDs, materializing descriptors, and the recurring/single-shot
// closures that drive the deadline queue.
package taskmgr

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const recentRunsCapacity = 5

// Task is one client-owned recurring or single-shot schedule. active and
// paused are shared by every closure scheduled for this task; a closure
// observing active == false after the task's owning session is gone
// becomes a no-op and drops its own reference.
type Task struct {
	ID       string
	Priority int
	Kind     string // "recurring" or "single_shot"
	Argv     []string

	active atomic.Bool
	paused atomic.Bool

	mu         sync.Mutex
	descriptor string
	lastError  string
	hasError   bool
	recentRuns []time.Time
}

func newTask(id string, priority int, kind string, argv []string, descriptor string) *Task {
	t := &Task{
		ID:         id,
		Priority:   priority,
		Kind:       kind,
		Argv:       argv,
		descriptor: descriptor,
	}
	t.active.Store(true)
	return t
}

func (t *Task) Active() bool { return t.active.Load() }

func (t *Task) SetActive(v bool) { t.active.Store(v) }

func (t *Task) Paused() bool { return t.paused.Load() }

func (t *Task) SetPaused(v bool) { t.paused.Store(v) }

func (t *Task) Descriptor() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.descriptor
}

func (t *Task) SetDescriptor(d string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.descriptor = d
}

func (t *Task) SetLastError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastError = msg
	t.hasError = true
}

func (t *Task) LastError() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastError, t.hasError
}

func (t *Task) recordRun(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recentRuns = append(t.recentRuns, at)
	if len(t.recentRuns) > recentRunsCapacity {
		t.recentRuns = t.recentRuns[len(t.recentRuns)-recentRunsCapacity:]
	}
}

// RecentRuns returns the last few invocation timestamps, most recent
// last. Neither the TCP protocol nor the admin HTTP surface reports them.
func (t *Task) RecentRuns() []time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Time, len(t.recentRuns))
	copy(out, t.recentRuns)
	return out
}

// Status derives the single-word status LIST_TASKS reports for a task.
func (t *Task) Status() string {
	_, hasErr := t.LastError()
	switch {
	case !t.Active() && hasErr:
		return "stopped (error)"
	case !t.Active():
		return "stopped"
	case t.Paused():
		return "paused"
	default:
		return "running"
	}
}

// ListLine renders the "<id>: <descriptor> (<status>)" line, plus an
// "  Error: <text>" continuation line when a last error is recorded.
func (t *Task) ListLine() string {
	line := fmt.Sprintf("%s: %s (%s)", t.ID, t.Descriptor(), t.Status())
	if msg, ok := t.LastError(); ok {
		line += "\n  Error: " + msg
	}
	return line
}
