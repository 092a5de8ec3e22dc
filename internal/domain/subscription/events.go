package subscription

import (
	"time"

	"github.com/google/uuid"
)

// StatusChangedEvent is raised whenever the billing status moves
type StatusChangedEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	From           Status    `json:"from"`
	To             Status    `json:"to"`
	Plan           PlanID    `json:"plan"`
	ChangedAt      time.Time `json:"changed_at"`
}

func (e StatusChangedEvent) EventName() string {
	return "subscription.status.changed"
}

func (e StatusChangedEvent) OccurredAt() time.Time {
	return e.ChangedAt
}

// Owner returns the user the event concerns
func (e StatusChangedEvent) Owner() uuid.UUID {
	return e.UserID
}
