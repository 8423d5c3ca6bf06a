package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLoggedIn   EventType = "user_logged_in"
	EventTodoCreated    EventType = "todo_created"
	EventTodoUpdated    EventType = "todo_updated"
)

// Event represents a domain event emitted by services. Events carry ids only,
// never credentials or todo content.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    int64       `json:"user_id"`
	TodoID    *int64      `json:"todo_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps a fresh event for the given user.
func NewEvent(eventType EventType, userID int64, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: at.UTC(),
	}
}

// ForTodo attaches a todo id to the event.
func (e Event) ForTodo(todoID int64) Event {
	e.TodoID = &todoID
	return e
}

// TodoUpdatedPayload lists which fields a patch touched.
type TodoUpdatedPayload struct {
	TitleChanged     bool `json:"title_changed"`
	CompletedChanged bool `json:"completed_changed"`
}
