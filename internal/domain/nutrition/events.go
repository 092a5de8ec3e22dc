package nutrition

import (
	"time"

	"github.com/google/uuid"
)

// FoodLoggedEvent is raised when a user logs food
type FoodLoggedEvent struct {
	EntryID  uuid.UUID `json:"entry_id"`
	UserID   uuid.UUID `json:"user_id"`
	Date     time.Time `json:"date"`
	Calories float64   `json:"calories"`
	LoggedAt time.Time `json:"logged_at"`
}

func (e FoodLoggedEvent) EventName() string {
	return "nutrition.logged"
}

func (e FoodLoggedEvent) OccurredAt() time.Time {
	return e.LoggedAt
}

// Owner returns the user the event concerns
func (e FoodLoggedEvent) Owner() uuid.UUID {
	return e.UserID
}
