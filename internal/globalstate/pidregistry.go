package globalstate

import "sync"

// PIDRegistry maps a running cansend subprocess's PID to the task ID
// that spawned it, guarded by its own mutex. This is always the innermost
// lock taken and is never held across a subprocess wait.
type PIDRegistry struct {
	mu  sync.Mutex
	pid map[int]string
}

func NewPIDRegistry() *PIDRegistry {
	return &PIDRegistry{pid: make(map[int]string)}
}

func (r *PIDRegistry) RegisterPID(pid int, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pid[pid] = taskID
}

func (r *PIDRegistry) UnregisterPID(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pid, pid)
}

// TaskIDFor returns the task ID that owns pid, if any.
func (r *PIDRegistry) TaskIDFor(pid int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	taskID, ok := r.pid[pid]
	return taskID, ok
}

// Snapshot returns every currently-registered PID.
func (r *PIDRegistry) Snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, 0, len(r.pid))
	for pid := range r.pid {
		out = append(out, pid)
	}
	return out
}

func (r *PIDRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pid)
}
