package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRedisPubSub(t *testing.T) {
	pubsub := NewRedisPubSub(nil)

	assert.NotNil(t, pubsub)
	assert.Nil(t, pubsub.client)
}

func TestRedisPubSub_channelName(t *testing.T) {
	pubsub := NewRedisPubSub(nil)

	tests := []struct {
		eventType EventType
		expected  string
	}{
		{EventTaskScheduled, "cansrv:events:task.scheduled"},
		{EventTaskPaused, "cansrv:events:task.paused"},
		{EventTaskResumed, "cansrv:events:task.resumed"},
		{EventTaskKilled, "cansrv:events:task.killed"},
		{EventTaskCompleted, "cansrv:events:task.completed"},
		{EventTaskErrored, "cansrv:events:task.errored"},
	}

	for _, tc := range tests {
		t.Run(string(tc.eventType), func(t *testing.T) {
			channel := pubsub.channelName(tc.eventType)
			assert.Equal(t, tc.expected, channel)
		})
	}
}

func TestChannelPrefix(t *testing.T) {
	assert.Equal(t, "cansrv:events:", channelPrefix)
}
