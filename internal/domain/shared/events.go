// Package shared holds types used across domain packages.
package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that has occurred in the domain
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// OwnedEvent is a domain event that belongs to a single user
type OwnedEvent interface {
	DomainEvent
	Owner() uuid.UUID
}

// EventDispatcher dispatches domain events to handlers
type EventDispatcher interface {
	Dispatch(event DomainEvent) error
	Register(eventName string, handler EventHandler)
}

// EventHandler handles domain events
type EventHandler func(event DomainEvent) error
