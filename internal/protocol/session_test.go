package protocol

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cansrv/cansrv/internal/caniface"
	"github.com/cansrv/cansrv/internal/globalstate"
	"github.com/cansrv/cansrv/internal/schedcore"
)

// testHarness wires a Session to one end of an in-memory pipe so
// commands can be sent and replies read without a real TCP listener.
type testHarness struct {
	client *bufio.Reader
	conn   net.Conn
	done   chan struct{}
}

func newTestHarness(t *testing.T, ifaces []string) *testHarness {
	t.Helper()

	serverConn, clientConn := net.Pipe()

	ifaceCache := caniface.NewCache()
	ifaceCache.Set(ifaces)

	threads := globalstate.NewThreadRegistry()
	pids := globalstate.NewPIDRegistry()
	queue := schedcore.NewQueue()

	session := NewSession(context.Background(), serverConn, queue, ifaceCache, threads, pids, nil)

	done := make(chan struct{})
	go func() {
		session.Serve()
		close(done)
	}()

	return &testHarness{client: bufio.NewReader(clientConn), conn: clientConn, done: done}
}

func (h *testHarness) send(t *testing.T, line string) {
	t.Helper()
	_, err := h.conn.Write([]byte(line + "\n"))
	require.NoError(t, err)
}

func (h *testHarness) readLine(t *testing.T) string {
	t.Helper()
	h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := h.client.ReadString('\n')
	require.NoError(t, err)
	return line
}

func TestSession_CANSEND_SchedulesRecurring(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "CANSEND#123#DEADBEEF#1000#vcan0")
	assert.Equal(t, "OK: CANSEND scheduled with task ID: task_0\n", h.readLine(t))
}

func TestSession_CANSEND_HexIDAndMsSuffixAndPriority(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "CANSEND#0x321#ABCDEF00#250ms#vcan0#9")
	assert.Equal(t, "OK: CANSEND scheduled with task ID: task_0\n", h.readLine(t))

	h.send(t, "LIST_TASKS")
	assert.Equal(t, "Active tasks:\n", h.readLine(t))
	assert.Equal(t, "task_0: cansend vcan0 321#ABCDEF00 every 250ms priority 9 (running)\n", h.readLine(t))
}

func TestSession_CANSEND_InvalidInterface(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "CANSEND#111#ABCD#100#notreal")
	assert.Equal(t, "ERROR: CAN interface 'notreal' is not available. Use LIST_CAN_INTERFACES to see available interfaces.\n", h.readLine(t))
}

func TestSession_CANSEND_InvalidTime(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "CANSEND#111#ABCD#abc#vcan0")
	assert.Equal(t, "ERROR: Invalid time value\n", h.readLine(t))
}

func TestSession_CANSEND_NegativeTime(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "CANSEND#111#ABCD#-5#vcan0")
	assert.Equal(t, "ERROR: Time value must be non-negative\n", h.readLine(t))
}

func TestSession_CANSEND_MalformedSyntax(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "CANSEND#111#ABCD")
	assert.Equal(t, cansendUsage, h.readLine(t))
}

func TestSession_SendTask_ScheduledAndKilled(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "SEND_TASK#124#CAFEBABE#500#vcan0")
	assert.Equal(t, "OK: SEND_TASK scheduled with task ID: task_0\n", h.readLine(t))

	h.send(t, "KILL_TASK task_0")
	assert.Equal(t, "Task task_0 killed\n", h.readLine(t))

	h.send(t, "KILL_TASK task_0")
	assert.Equal(t, "Task not found\n", h.readLine(t))
}

func TestSession_PauseResume_Idempotent(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "CANSEND#1#AA#1000#vcan0")
	h.readLine(t)

	h.send(t, "PAUSE task_0")
	assert.Equal(t, "Paused task_0\n", h.readLine(t))
	h.send(t, "PAUSE task_0")
	assert.Equal(t, "Paused task_0\n", h.readLine(t))

	h.send(t, "RESUME task_0")
	assert.Equal(t, "Resumed task_0\n", h.readLine(t))
	h.send(t, "RESUME task_0")
	assert.Equal(t, "Resumed task_0\n", h.readLine(t))
}

func TestSession_Pause_UnknownTask(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "PAUSE task_999")
	assert.Equal(t, "Task not found\n", h.readLine(t))
}

func TestSession_KillAllTasksNotConfusedWithKillAll(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "CANSEND#1#AA#1000#vcan0")
	h.readLine(t)

	h.send(t, "KILL_ALL_TASKS")
	assert.Equal(t, "All tasks killed\n", h.readLine(t))

	h.send(t, "LIST_TASKS")
	assert.Equal(t, "Active tasks:\n", h.readLine(t))
}

func TestSession_KillAll_ProcessesMessage(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "KILL_ALL")
	assert.Equal(t, "All processes killed.\n", h.readLine(t))
}

func TestSession_ListCANInterfaces_None(t *testing.T) {
	h := newTestHarness(t, nil)
	defer h.conn.Close()

	h.send(t, "LIST_CAN_INTERFACES")
	assert.Equal(t, "No CAN interfaces available\n", h.readLine(t))
}

func TestSession_SetLogLevel(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "SET_LOG_LEVEL INFO")
	assert.Equal(t, "Log level set to INFO\n", h.readLine(t))

	h.send(t, "SET_LOG_LEVEL BOGUS")
	assert.Equal(t, "Invalid log level\n", h.readLine(t))
}

func TestSession_KillThread_InvalidID(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "KILL_THREAD ")
	assert.Equal(t, "Invalid thread ID\n", h.readLine(t))
}

func TestSession_UnknownCommand(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "NONSENSE FOO")
	assert.Equal(t, "Unknown command: NONSENSE FOO\n", h.readLine(t))
}

func TestSession_Shutdown_ClosesSessionWithoutReply(t *testing.T) {
	h := newTestHarness(t, []string{"vcan0"})
	defer h.conn.Close()

	h.send(t, "SHUTDOWN")

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close after SHUTDOWN")
	}
}
