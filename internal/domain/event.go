package domain

import "time"

type EventType string

const (
	EventMessageCreated EventType = "message_created"
	EventMessageUpdated EventType = "message_updated"
	EventMessageDeleted EventType = "message_deleted"
)

// TopicMessages is the single logical topic every message event goes to.
const TopicMessages = "messages"

var eventLabels = map[EventType]string{
	EventMessageCreated: "New message",
	EventMessageUpdated: "Updated message",
	EventMessageDeleted: "Deleted message",
}

// Event is never persisted.
type Event struct {
	Type       EventType
	Label      string
	Message    Message
	OccurredAt time.Time
}

func NewMessageEvent(t EventType, m *Message, now time.Time) Event {
	return Event{
		Type:       t,
		Label:      eventLabels[t],
		Message:    m.Snapshot(),
		OccurredAt: now,
	}
}
