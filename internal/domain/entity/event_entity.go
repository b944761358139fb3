package entity

import (
	"encoding/json"
	"time"
)

// EventUserCreated is the schema tag carried in the AMQP Type property.
const EventUserCreated = "UserCreated"

// Event is a domain event that can be handed to the broker.
type Event interface {
	EventType() string
	Payload() ([]byte, error)
}

// UserCreated snapshots a freshly registered user, hash included.
type UserCreated struct {
	User       User
	OccurredAt time.Time
}

func NewUserCreated(u User) UserCreated {
	return UserCreated{User: u, OccurredAt: time.Now().UTC()}
}

func (e UserCreated) EventType() string { return EventUserCreated }

// Payload is the UTF-8 JSON encoding of the user record.
func (e UserCreated) Payload() ([]byte, error) {
	return json.Marshal(e.User)
}

// OutboxEvent is a serialized event waiting to be relayed to the broker.
type OutboxEvent struct {
	ID        int64
	EventType string
	Payload   []byte
	Attempts  int
	LastError string
	CreatedAt time.Time
	SentAt    *time.Time
}

// Event replays the stored payload unchanged.
func (e OutboxEvent) Event() Event {
	return rawEvent{typ: e.EventType, body: e.Payload}
}

type rawEvent struct {
	typ  string
	body []byte
}

func (r rawEvent) EventType() string         { return r.typ }
func (r rawEvent) Payload() ([]byte, error) { return r.body, nil }
