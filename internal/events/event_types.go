package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventCodeVerified   EventType = "code_verified"
	EventStepCleared    EventType = "step_cleared"
	EventLevelUp        EventType = "level_up"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Identity  string      `json:"identity,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// StepClearedPayload payload.
type StepClearedPayload struct {
	StepID int `json:"step_id"`
	Reward int `json:"reward"`
	Exp    int `json:"exp"`
}

// LevelUpPayload payload.
type LevelUpPayload struct {
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}
