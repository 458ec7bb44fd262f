// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the engine and may trigger a notification.
const (
	EventChallengeCompleted  EventType = "progress.challenge_completed"
	EventAchievementUnlocked EventType = "progress.achievement_unlocked"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string
}

// EventHandler processes a published event.
type EventHandler func(event Event) error

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// ChallengeCompletedEvent is emitted after a completion record commits.
type ChallengeCompletedEvent struct {
	BaseEvent
	LearnerID     string `json:"learner_id"`
	ChallengeID   string `json:"challenge_id"`
	ChallengeName string `json:"challenge_name"`
	AwardedPoints int    `json:"awarded_points"`
	TotalScore    int    `json:"total_score"`
}

// AchievementUnlockedEvent is emitted once per threshold crossing.
type AchievementUnlockedEvent struct {
	BaseEvent
	LearnerID   string `json:"learner_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Achievement string `json:"achievement"`
	TotalScore  int    `json:"total_score"`
}
