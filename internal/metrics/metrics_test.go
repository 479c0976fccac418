package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	assert.NotNil(t, TasksScheduled)
	assert.NotNil(t, TasksCompleted)
	assert.NotNil(t, TaskInvocationDuration)

	assert.NotNil(t, QueueDepth)
	assert.NotNil(t, QueueLatency)

	assert.NotNil(t, ActiveWorkers)
	assert.NotNil(t, WorkerBusyTime)

	assert.NotNil(t, SubprocessExits)

	assert.NotNil(t, ActiveSessions)
	assert.NotNil(t, CommandsReceived)

	assert.NotNil(t, CANInterfacesAvailable)

	assert.NotNil(t, HTTPRequestDuration)

	assert.NotNil(t, EventsPublished)
	assert.NotNil(t, EventsPublishErrors)
}

func TestRecordTaskScheduled(t *testing.T) {
	TasksScheduled.Reset()

	RecordTaskScheduled("recurring", "5")
	RecordTaskScheduled("recurring", "5")
	RecordTaskScheduled("single_shot", "9")
}

func TestRecordTaskCompletion(t *testing.T) {
	TasksCompleted.Reset()
	TaskInvocationDuration.Reset()

	RecordTaskCompletion("recurring", "success", 0.01)
	RecordTaskCompletion("single_shot", "failed", 0.02)
}

func TestSetQueueDepth(t *testing.T) {
	SetQueueDepth(0)
	SetQueueDepth(12)
}

func TestRecordQueueLatency(t *testing.T) {
	RecordQueueLatency(0.0005)
	RecordQueueLatency(0.2)
}

func TestSetActiveWorkers(t *testing.T) {
	SetActiveWorkers(4)
	SetActiveWorkers(0)
}

func TestRecordWorkerBusyTime(t *testing.T) {
	WorkerBusyTime.Reset()

	RecordWorkerBusyTime("worker-1", 1.5)
	RecordWorkerBusyTime("worker-2", 0.2)
}

func TestRecordSubprocessExit(t *testing.T) {
	SubprocessExits.Reset()

	RecordSubprocessExit("success")
	RecordSubprocessExit("nonzero_exit")
	RecordSubprocessExit("signaled")
}

func TestSetActiveSessions(t *testing.T) {
	SetActiveSessions(0)
	SetActiveSessions(3)
}

func TestRecordCommandReceived(t *testing.T) {
	CommandsReceived.Reset()

	RecordCommandReceived("PAUSE")
	RecordCommandReceived("LIST_TASKS")
}

func TestSetCANInterfacesAvailable(t *testing.T) {
	SetCANInterfacesAvailable(0)
	SetCANInterfacesAvailable(2)
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/healthz", "200", 0.001)
	RecordHTTPRequest("GET", "/admin/threads", "200", 0.002)
}

func TestRecordEventPublished(t *testing.T) {
	EventsPublished.Reset()

	RecordEventPublished("task.scheduled")
	RecordEventPublished("task.killed")
}

func TestRecordEventPublishError(t *testing.T) {
	RecordEventPublishError()
}
