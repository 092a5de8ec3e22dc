// Package recipe contains the core domain logic for the recipe catalog.
// Recipes carry per-serving nutrition, the meal slots they fit, and an
// anti-inflammatory score used by meal planning.
package recipe

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/shared"
)

// Recipe represents the core recipe entity in our domain.
type Recipe struct {
	id      uuid.UUID
	version int64

	title       string
	description string
	authorID    uuid.UUID
	imageURL    string

	ingredients  []Ingredient
	instructions []Instruction
	nutrition    NutritionInfo

	mealTypes             []MealType
	antiInflammatoryScore int
	tags                  []string

	prepTime time.Duration
	cookTime time.Duration
	servings int

	status      RecipeStatus
	publishedAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time

	events []shared.DomainEvent
}

// NewRecipe creates a new draft Recipe with validation
func NewRecipe(title, description string, authorID uuid.UUID) (*Recipe, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}

	if err := validateDescription(description); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	recipe := &Recipe{
		id:                    uuid.New(),
		version:               1,
		title:                 title,
		description:           description,
		authorID:              authorID,
		servings:              1,
		antiInflammatoryScore: MinScore,
		status:                RecipeStatusDraft,
		createdAt:             now,
		updatedAt:             now,
		events:                []shared.DomainEvent{},
	}

	recipe.addEvent(RecipeCreatedEvent{
		RecipeID:  recipe.id,
		AuthorID:  authorID,
		Title:     title,
		CreatedAt: now,
	})

	return recipe, nil
}

// Snapshot carries the persisted state of a recipe
type Snapshot struct {
	ID                    uuid.UUID
	Version               int64
	Title                 string
	Description           string
	AuthorID              uuid.UUID
	ImageURL              string
	Ingredients           []Ingredient
	Instructions          []Instruction
	Nutrition             NutritionInfo
	MealTypes             []MealType
	AntiInflammatoryScore int
	Tags                  []string
	PrepTime              time.Duration
	CookTime              time.Duration
	Servings              int
	Status                RecipeStatus
	PublishedAt           *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ReconstructRecipe rebuilds a recipe from storage without raising events
func ReconstructRecipe(s Snapshot) *Recipe {
	return &Recipe{
		id:                    s.ID,
		version:               s.Version,
		title:                 s.Title,
		description:           s.Description,
		authorID:              s.AuthorID,
		imageURL:              s.ImageURL,
		ingredients:           s.Ingredients,
		instructions:          s.Instructions,
		nutrition:             s.Nutrition,
		mealTypes:             s.MealTypes,
		antiInflammatoryScore: s.AntiInflammatoryScore,
		tags:                  s.Tags,
		prepTime:              s.PrepTime,
		cookTime:              s.CookTime,
		servings:              s.Servings,
		status:                s.Status,
		publishedAt:           s.PublishedAt,
		createdAt:             s.CreatedAt,
		updatedAt:             s.UpdatedAt,
		events:                []shared.DomainEvent{},
	}
}

// ID returns the recipe's unique identifier
func (r *Recipe) ID() uuid.UUID {
	return r.id
}

// Version returns the recipe's version
func (r *Recipe) Version() int64 {
	return r.version
}

// Title returns the recipe's title
func (r *Recipe) Title() string {
	return r.title
}

// Description returns the recipe's description
func (r *Recipe) Description() string {
	return r.description
}

// AuthorID returns the recipe's author ID
func (r *Recipe) AuthorID() uuid.UUID {
	return r.authorID
}

// ImageURL returns the recipe's image URL
func (r *Recipe) ImageURL() string {
	return r.imageURL
}

// Ingredients returns the recipe's ingredients
func (r *Recipe) Ingredients() []Ingredient {
	return r.ingredients
}

// Instructions returns the recipe's instructions
func (r *Recipe) Instructions() []Instruction {
	return r.instructions
}

// Nutrition returns the per-serving nutrition
func (r *Recipe) Nutrition() NutritionInfo {
	return r.nutrition
}

// MealTypes returns the meal slots this recipe fits
func (r *Recipe) MealTypes() []MealType {
	return r.mealTypes
}

// AntiInflammatoryScore returns the 1..10 rating
func (r *Recipe) AntiInflammatoryScore() int {
	return r.antiInflammatoryScore
}

// Tags returns the recipe's tags
func (r *Recipe) Tags() []string {
	return r.tags
}

// PrepTime returns the preparation time
func (r *Recipe) PrepTime() time.Duration {
	return r.prepTime
}

// CookTime returns the cooking time
func (r *Recipe) CookTime() time.Duration {
	return r.cookTime
}

// TotalTime returns prep plus cook time
func (r *Recipe) TotalTime() time.Duration {
	return r.prepTime + r.cookTime
}

// Servings returns the number of servings the recipe yields
func (r *Recipe) Servings() int {
	return r.servings
}

// Status returns the recipe status
func (r *Recipe) Status() RecipeStatus {
	return r.status
}

// IsPublished reports whether the recipe is visible to users
func (r *Recipe) IsPublished() bool {
	return r.status == RecipeStatusPublished
}

// PublishedAt returns when the recipe was published
func (r *Recipe) PublishedAt() *time.Time {
	return r.publishedAt
}

// CreatedAt returns when the recipe was created
func (r *Recipe) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns when the recipe was last updated
func (r *Recipe) UpdatedAt() time.Time {
	return r.updatedAt
}

// HasMealType reports whether the recipe can fill the given slot
func (r *Recipe) HasMealType(mealType MealType) bool {
	for _, m := range r.mealTypes {
		if m == mealType {
			return true
		}
	}
	return false
}

// UpdateDetails changes title, description and image
func (r *Recipe) UpdateDetails(title, description, imageURL string) error {
	if err := r.ensureMutable(); err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return err
	}
	if err := validateDescription(description); err != nil {
		return err
	}

	r.title = title
	r.description = description
	r.imageURL = imageURL
	r.touch()
	return nil
}

// SetMealTypes replaces the meal slots, deduplicating in input order
func (r *Recipe) SetMealTypes(mealTypes []MealType) error {
	if err := r.ensureMutable(); err != nil {
		return err
	}
	if len(mealTypes) == 0 {
		return ErrNoMealTypes
	}

	seen := make(map[MealType]bool, len(mealTypes))
	deduped := make([]MealType, 0, len(mealTypes))
	for _, m := range mealTypes {
		if !m.Valid() {
			return ErrInvalidMealType
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		deduped = append(deduped, m)
	}

	r.mealTypes = deduped
	r.touch()
	return nil
}

// SetAntiInflammatoryScore sets the 1..10 rating
func (r *Recipe) SetAntiInflammatoryScore(score int) error {
	if err := r.ensureMutable(); err != nil {
		return err
	}
	if err := ValidateScore(score); err != nil {
		return err
	}
	r.antiInflammatoryScore = score
	r.touch()
	return nil
}

// SetTiming sets prep and cook time
func (r *Recipe) SetTiming(prep, cook time.Duration) error {
	if err := r.ensureMutable(); err != nil {
		return err
	}
	if prep < 0 || cook < 0 {
		return ErrNegativeDuration
	}
	r.prepTime = prep
	r.cookTime = cook
	r.touch()
	return nil
}

// SetServings sets how many servings the recipe yields
func (r *Recipe) SetServings(servings int) error {
	if err := r.ensureMutable(); err != nil {
		return err
	}
	if servings <= 0 {
		return ErrInvalidServings
	}
	r.servings = servings
	r.touch()
	return nil
}

// SetNutrition sets the per-serving nutrition
func (r *Recipe) SetNutrition(n NutritionInfo) error {
	if err := r.ensureMutable(); err != nil {
		return err
	}
	if err := n.Validate(); err != nil {
		return err
	}
	r.nutrition = n
	r.touch()
	return nil
}

// SetTags replaces tags, normalized to lower case
func (r *Recipe) SetTags(tags []string) {
	normalized := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			normalized = append(normalized, t)
		}
	}
	r.tags = normalized
	r.touch()
}

// AddIngredient adds a new ingredient to the recipe
func (r *Recipe) AddIngredient(ingredient Ingredient) error {
	if err := r.ensureMutable(); err != nil {
		return err
	}
	if err := ingredient.Validate(); err != nil {
		return err
	}

	r.ingredients = append(r.ingredients, ingredient)
	r.touch()
	return nil
}

// AddInstruction adds a new instruction step
func (r *Recipe) AddInstruction(instruction Instruction) error {
	if err := r.ensureMutable(); err != nil {
		return err
	}
	if err := instruction.Validate(); err != nil {
		return err
	}

	instruction.StepNumber = len(r.instructions) + 1
	r.instructions = append(r.instructions, instruction)
	r.touch()
	return nil
}

// ReplaceContent clears ingredients and instructions before re-adding them
func (r *Recipe) ReplaceContent(ingredients []Ingredient, instructions []Instruction) error {
	if err := r.ensureMutable(); err != nil {
		return err
	}
	r.ingredients = nil
	r.instructions = nil
	for _, ing := range ingredients {
		if err := r.AddIngredient(ing); err != nil {
			return err
		}
	}
	for _, ins := range instructions {
		if err := r.AddInstruction(ins); err != nil {
			return err
		}
	}
	return nil
}

// Publish publishes the recipe making it visible to users
func (r *Recipe) Publish() error {
	if r.status != RecipeStatusDraft {
		return ErrInvalidStatusTransition
	}

	if err := r.validateForPublishing(); err != nil {
		return err
	}

	now := time.Now().UTC()
	r.status = RecipeStatusPublished
	r.publishedAt = &now
	r.updatedAt = now

	r.addEvent(RecipePublishedEvent{
		RecipeID:    r.id,
		PublishedAt: now,
	})

	return nil
}

// Archive archives the recipe
func (r *Recipe) Archive() error {
	if r.status != RecipeStatusPublished {
		return ErrInvalidStatusTransition
	}

	r.status = RecipeStatusArchived
	r.updatedAt = time.Now().UTC()

	r.addEvent(RecipeArchivedEvent{
		RecipeID:   r.id,
		ArchivedAt: r.updatedAt,
	})

	return nil
}

// MarkFavorited records that a user favorited the recipe
func (r *Recipe) MarkFavorited(userID uuid.UUID) {
	r.addEvent(RecipeFavoritedEvent{
		RecipeID:    r.id,
		UserID:      userID,
		FavoritedAt: time.Now().UTC(),
	})
}

// validateForPublishing ensures recipe meets publishing requirements
func (r *Recipe) validateForPublishing() error {
	if len(r.ingredients) == 0 {
		return ErrNoIngredients
	}

	if len(r.instructions) == 0 {
		return ErrNoInstructions
	}

	if len(r.mealTypes) == 0 {
		return ErrNoMealTypes
	}

	if r.servings <= 0 {
		return ErrInvalidServings
	}

	return ValidateScore(r.antiInflammatoryScore)
}

func (r *Recipe) ensureMutable() error {
	if r.status == RecipeStatusArchived {
		return ErrRecipeArchived
	}
	return nil
}

// touch bumps updatedAt and emits a single update event per batch of changes
func (r *Recipe) touch() {
	r.updatedAt = time.Now().UTC()
	for _, e := range r.events {
		if _, ok := e.(RecipeUpdatedEvent); ok {
			return
		}
		if _, ok := e.(RecipeCreatedEvent); ok {
			return
		}
	}
	r.addEvent(RecipeUpdatedEvent{RecipeID: r.id, UpdatedAt: r.updatedAt})
}

// addEvent adds a domain event to be dispatched
func (r *Recipe) addEvent(event shared.DomainEvent) {
	r.events = append(r.events, event)
}

// Events returns and clears pending domain events
func (r *Recipe) Events() []shared.DomainEvent {
	events := r.events
	r.events = []shared.DomainEvent{}
	return events
}

// validateTitle validates recipe title
func validateTitle(title string) error {
	if len(title) < 3 {
		return ErrTitleTooShort
	}
	if len(title) > 200 {
		return ErrTitleTooLong
	}
	return nil
}

// validateDescription validates recipe description
func validateDescription(description string) error {
	if len(description) > 2000 {
		return ErrDescriptionTooLong
	}
	return nil
}
