// Package globalstate holds the process-wide bookkeeping that spans all
// connected client sessions: the thread/session registry and the
// PID-to-task-ID map used to find and signal running cansend invocations.
package globalstate

import (
	"sort"
	"sync"
)

// ThreadRegistry tracks every live worker and client-handler goroutine,
// observable via LIST_THREADS and the admin HTTP mirror.
type ThreadRegistry struct {
	mu      sync.RWMutex
	threads map[string]ThreadInfo
}

// ThreadInfo describes one registered thread for listing purposes.
type ThreadInfo struct {
	ID   string
	Kind string // "worker" or "client"
}

func NewThreadRegistry() *ThreadRegistry {
	return &ThreadRegistry{threads: make(map[string]ThreadInfo)}
}

func (r *ThreadRegistry) Register(id, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[id] = ThreadInfo{ID: id, Kind: kind}
}

func (r *ThreadRegistry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, id)
}

// List returns a stable-ordered snapshot of every registered thread.
func (r *ThreadRegistry) List() []ThreadInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ThreadInfo, 0, len(r.threads))
	for _, info := range r.threads {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *ThreadRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.threads)
}
