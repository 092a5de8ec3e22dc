package user

import (
	"time"

	"github.com/google/uuid"
)

// UserRegisteredEvent is raised when an account is created
type UserRegisteredEvent struct {
	UserID       uuid.UUID
	Email        string
	RegisteredAt time.Time
}

func (e UserRegisteredEvent) EventName() string {
	return "user.registered"
}

func (e UserRegisteredEvent) OccurredAt() time.Time {
	return e.RegisteredAt
}

// ProfileUpdatedEvent is raised when body metrics or calorie targets change
type ProfileUpdatedEvent struct {
	UserID       uuid.UUID
	CaloricNeeds int
	UpdatedAt    time.Time
}

func (e ProfileUpdatedEvent) EventName() string {
	return "user.profile.updated"
}

func (e ProfileUpdatedEvent) OccurredAt() time.Time {
	return e.UpdatedAt
}
