package recipe

import (
	"time"

	"github.com/google/uuid"
)

// Domain Events - Events that occur within the recipe domain

// RecipeCreatedEvent is raised when a new recipe is created
type RecipeCreatedEvent struct {
	RecipeID  uuid.UUID
	AuthorID  uuid.UUID
	Title     string
	CreatedAt time.Time
}

func (e RecipeCreatedEvent) EventName() string {
	return "recipe.created"
}

func (e RecipeCreatedEvent) OccurredAt() time.Time {
	return e.CreatedAt
}

// RecipeUpdatedEvent is raised when recipe content changes after creation
type RecipeUpdatedEvent struct {
	RecipeID  uuid.UUID
	UpdatedAt time.Time
}

func (e RecipeUpdatedEvent) EventName() string {
	return "recipe.updated"
}

func (e RecipeUpdatedEvent) OccurredAt() time.Time {
	return e.UpdatedAt
}

// RecipePublishedEvent is raised when a recipe is published
type RecipePublishedEvent struct {
	RecipeID    uuid.UUID
	PublishedAt time.Time
}

func (e RecipePublishedEvent) EventName() string {
	return "recipe.published"
}

func (e RecipePublishedEvent) OccurredAt() time.Time {
	return e.PublishedAt
}

// RecipeArchivedEvent is raised when a recipe is archived
type RecipeArchivedEvent struct {
	RecipeID   uuid.UUID
	ArchivedAt time.Time
}

func (e RecipeArchivedEvent) EventName() string {
	return "recipe.archived"
}

func (e RecipeArchivedEvent) OccurredAt() time.Time {
	return e.ArchivedAt
}

// RecipeFavoritedEvent is raised when a user adds a recipe to their favorites
type RecipeFavoritedEvent struct {
	RecipeID    uuid.UUID
	UserID      uuid.UUID
	FavoritedAt time.Time
}

func (e RecipeFavoritedEvent) EventName() string {
	return "recipe.favorited"
}

func (e RecipeFavoritedEvent) OccurredAt() time.Time {
	return e.FavoritedAt
}
