// Package events publishes task lifecycle transitions to an optional,
// best-effort external channel. Nothing in this server reads events back
// to reconstruct state; publishing is purely for external monitoring.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// EventType identifies a task lifecycle transition.
type EventType string

const (
	EventTaskScheduled EventType = "task.scheduled"
	EventTaskPaused    EventType = "task.paused"
	EventTaskResumed   EventType = "task.resumed"
	EventTaskKilled    EventType = "task.killed"
	EventTaskCompleted EventType = "task.completed"
	EventTaskErrored   EventType = "task.errored"
)

// Event is a single published task lifecycle transition.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewEvent(eventType EventType, data map[string]interface{}) *Event {
	return &Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Publisher is implemented by both the Redis-backed and no-op publishers.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// TaskEventData builds the Data payload for a task lifecycle event.
func TaskEventData(sessionID, taskID, kind string, extra map[string]interface{}) map[string]interface{} {
	data := map[string]interface{}{
		"session_id": sessionID,
		"task_id":    taskID,
		"kind":       kind,
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

// NoopPublisher discards every event. Used when EVENTS_REDIS_ADDR is unset.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *Event) error { return nil }
func (NoopPublisher) Close() error                          { return nil }
