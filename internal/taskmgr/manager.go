package taskmgr

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cansrv/cansrv/internal/events"
	"github.com/cansrv/cansrv/internal/logger"
	"github.com/cansrv/cansrv/internal/metrics"
	"github.com/cansrv/cansrv/internal/schedcore"
	"github.com/cansrv/cansrv/internal/supervisor"
)

// cansendBinary is the external CAN transmit utility this server invokes
// as cansend <iface> <id>#<payload>. A package variable rather than a
// constant so tests can substitute a stand-in executable.
var cansendBinary = "cansend"

const singleShotPauseBackoff = 50 * time.Millisecond

// PIDRegistrar is satisfied by globalstate.PIDRegistry.
type PIDRegistrar interface {
	RegisterPID(pid int, taskID string)
	UnregisterPID(pid int)
}

// Manager owns every task belonging to one client session: it assigns
// task IDs, materializes descriptors, and schedules the recurring /
// single-shot closures into the shared deadline queue.
type Manager struct {
	sessionID string
	ctx       context.Context
	queue     *schedcore.Queue
	pidReg    PIDRegistrar
	publisher events.Publisher

	mu      sync.Mutex
	tasks   map[string]*Task
	counter uint64
}

func NewManager(ctx context.Context, sessionID string, q *schedcore.Queue, pidReg PIDRegistrar, pub events.Publisher) *Manager {
	if pub == nil {
		pub = events.NoopPublisher{}
	}
	return &Manager{
		sessionID: sessionID,
		ctx:       ctx,
		queue:     q,
		pidReg:    pidReg,
		publisher: pub,
		tasks:     make(map[string]*Task),
	}
}

func (m *Manager) nextTaskID() string {
	n := atomic.AddUint64(&m.counter, 1) - 1
	return fmt.Sprintf("task_%d", n)
}

// ScheduleRecurring creates a recurring task invoking iface/idPayload
// every intervalMs milliseconds, and returns its task ID.
func (m *Manager) ScheduleRecurring(iface, idPayload string, intervalMs int64, priority int) string {
	id := m.nextTaskID()
	argv := []string{iface, idPayload}
	descriptor := fmt.Sprintf("cansend %s %s every %dms priority %d", iface, idPayload, intervalMs, priority)

	t := newTask(id, priority, "recurring", argv, descriptor)
	m.put(t)
	m.publish(events.EventTaskScheduled, t, nil)

	var tick func()
	tick = func() {
		if !t.Active() {
			return
		}
		if !t.Paused() {
			m.invoke(t)
		}
		if t.Active() {
			m.queue.EnqueueAt(time.Now().Add(time.Duration(intervalMs)*time.Millisecond), priority, false, tick)
		}
	}

	m.queue.EnqueueAt(time.Now().Add(time.Duration(intervalMs)*time.Millisecond), priority, false, tick)
	metrics.RecordTaskScheduled("recurring", fmt.Sprintf("%d", priority))
	return id
}

// ScheduleSingleShot creates a one-shot task invoking iface/idPayload
// once, after delayMs milliseconds, and returns its task ID.
func (m *Manager) ScheduleSingleShot(iface, idPayload string, delayMs int64, priority int) string {
	id := m.nextTaskID()
	argv := []string{iface, idPayload}
	descriptor := fmt.Sprintf("cansend %s %s once after %dms priority %d", iface, idPayload, delayMs, priority)

	t := newTask(id, priority, "single_shot", argv, descriptor)
	m.put(t)
	m.publish(events.EventTaskScheduled, t, nil)

	var tick func()
	tick = func() {
		if !t.Active() {
			return
		}
		if t.Paused() {
			m.queue.EnqueueAt(time.Now().Add(singleShotPauseBackoff), priority, false, tick)
			return
		}

		ok := m.invoke(t)
		if ok {
			t.SetActive(false)
			t.SetDescriptor(fmt.Sprintf("cansend %s %s once (completed)", iface, idPayload))
			m.publish(events.EventTaskCompleted, t, nil)
		} else {
			t.SetDescriptor(fmt.Sprintf("cansend %s %s once (error)", iface, idPayload))
			m.publish(events.EventTaskErrored, t, nil)
		}
	}

	m.queue.EnqueueAt(time.Now().Add(time.Duration(delayMs)*time.Millisecond), priority, false, tick)
	metrics.RecordTaskScheduled("single_shot", fmt.Sprintf("%d", priority))
	return id
}

// invoke runs the Supervisor for t and records the outcome on the task.
func (m *Manager) invoke(t *Task) bool {
	start := time.Now()
	ok, errMsg := supervisor.Run(m.ctx, cansendBinary, t.Argv, t.ID, m.pidReg)
	t.recordRun(start)

	status := "success"
	if !ok {
		t.SetActive(false)
		t.SetLastError(errMsg)
		status = "failed"
		logger.Error().Str("task_id", t.ID).Str("session_id", m.sessionID).Str("error", errMsg).Msg("task invocation failed")
	}
	metrics.RecordTaskCompletion(t.Kind, status, time.Since(start).Seconds())
	return ok
}

func (m *Manager) put(t *Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
}

func (m *Manager) get(taskID string) (*Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	return t, ok
}

// Pause flips paused to true. Reports whether taskID was known.
func (m *Manager) Pause(taskID string) bool {
	t, ok := m.get(taskID)
	if !ok {
		return false
	}
	t.SetPaused(true)
	m.publish(events.EventTaskPaused, t, nil)
	return true
}

// Resume flips paused to false. Reports whether taskID was known.
func (m *Manager) Resume(taskID string) bool {
	t, ok := m.get(taskID)
	if !ok {
		return false
	}
	t.SetPaused(false)
	m.publish(events.EventTaskResumed, t, nil)
	return true
}

// Kill deactivates taskID and removes its bookkeeping entry. Reports
// whether taskID was known.
func (m *Manager) Kill(taskID string) bool {
	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if ok {
		delete(m.tasks, taskID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	t.SetActive(false)
	m.publish(events.EventTaskKilled, t, nil)
	return true
}

// KillAll deactivates and removes every task owned by this manager.
func (m *Manager) KillAll() {
	m.mu.Lock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.tasks = make(map[string]*Task)
	m.mu.Unlock()

	for _, t := range tasks {
		t.SetActive(false)
		m.publish(events.EventTaskKilled, t, nil)
	}
}

// List returns every owned task's list line, ordered by task ID for
// stable, reproducible output.
func (m *Manager) List() []string {
	m.mu.Lock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, t.ListLine())
	}
	return lines
}

// Count reports how many tasks this manager currently owns.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *Manager) publish(eventType events.EventType, t *Task, extra map[string]interface{}) {
	data := events.TaskEventData(m.sessionID, t.ID, t.Kind, extra)
	if err := m.publisher.Publish(m.ctx, events.NewEvent(eventType, data)); err != nil {
		metrics.RecordEventPublishError()
	} else {
		metrics.RecordEventPublished(string(eventType))
	}
}
