package mealplan

import (
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
)

// Status is the lifecycle state of a plan
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Insights is optional coaching text attached to a plan
type Insights struct {
	Summary string
	Tips    []string
	Source  string
}

// MealPlan is a user's plan for one week
type MealPlan struct {
	id        uuid.UUID
	userID    uuid.UUID
	weekStart time.Time
	meals     WeeklyMeals
	nutrition WeeklyNutrition
	insights  *Insights
	status    Status
	createdAt time.Time
	updatedAt time.Time

	events []shared.DomainEvent
}

// NewMealPlan creates an active plan for the week containing weekOf
func NewMealPlan(userID uuid.UUID, weekOf time.Time, meals WeeklyMeals) (*MealPlan, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if err := validateMeals(meals); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &MealPlan{
		id:        uuid.New(),
		userID:    userID,
		weekStart: shared.WeekStart(weekOf),
		meals:     meals,
		nutrition: CalculateWeeklyNutrition(meals),
		status:    StatusActive,
		createdAt: now,
		updatedAt: now,
	}
	p.addEvent(MealPlanGeneratedEvent{
		PlanID:      p.id,
		UserID:      userID,
		WeekStart:   p.weekStart,
		MealCount:   p.nutrition.MealCount,
		GeneratedAt: now,
	})
	return p, nil
}

// Snapshot carries the persisted state of a plan
type Snapshot struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	WeekStart time.Time
	Meals     WeeklyMeals
	Insights  *Insights
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReconstructMealPlan rebuilds a plan from storage; nutrition is recomputed
func ReconstructMealPlan(s Snapshot) *MealPlan {
	meals := NewWeeklyMeals()
	for day, dm := range s.Meals {
		if _, ok := meals[day]; ok && dm != nil {
			meals[day] = dm
		}
	}
	return &MealPlan{
		id:        s.ID,
		userID:    s.UserID,
		weekStart: s.WeekStart,
		meals:     meals,
		nutrition: CalculateWeeklyNutrition(meals),
		insights:  s.Insights,
		status:    s.Status,
		createdAt: s.CreatedAt,
		updatedAt: s.UpdatedAt,
	}
}

func (p *MealPlan) ID() uuid.UUID              { return p.id }
func (p *MealPlan) UserID() uuid.UUID          { return p.userID }
func (p *MealPlan) WeekStart() time.Time       { return p.weekStart }
func (p *MealPlan) Meals() WeeklyMeals         { return p.meals }
func (p *MealPlan) Nutrition() WeeklyNutrition { return p.nutrition }
func (p *MealPlan) Insights() *Insights        { return p.insights }
func (p *MealPlan) Status() Status             { return p.status }
func (p *MealPlan) CreatedAt() time.Time       { return p.createdAt }
func (p *MealPlan) UpdatedAt() time.Time       { return p.updatedAt }

// IsOwnedBy reports whether userID owns the plan
func (p *MealPlan) IsOwnedBy(userID uuid.UUID) bool {
	return p.userID == userID
}

// Meal returns the meal in a slot
func (p *MealPlan) Meal(day shared.Day, slot recipe.MealType) (PlannedMeal, bool) {
	m, ok := p.meals[day][slot]
	return m, ok
}

// SwapMeal puts r into the slot and recalculates nutrition
func (p *MealPlan) SwapMeal(day shared.Day, slot recipe.MealType, r *recipe.Recipe, servings float64) error {
	if p.status != StatusActive {
		return ErrPlanArchived
	}
	if _, ok := p.meals[day]; !ok {
		return shared.ErrInvalidDay
	}
	if !Qualifies(r, slot) {
		return ErrRecipeDoesNotFitSlot
	}
	if servings < MinServings || servings > MaxServings {
		return ErrInvalidServings
	}

	previous := p.meals[day][slot]
	p.meals[day][slot] = NewPlannedMeal(r, slot, servings)
	p.recalculate()

	p.addEvent(MealSwappedEvent{
		PlanID:      p.id,
		UserID:      p.userID,
		Day:         day,
		MealType:    slot,
		OldRecipeID: previous.RecipeID,
		NewRecipeID: r.ID(),
		SwappedAt:   p.updatedAt,
	})
	return nil
}

// RemoveMeal empties a slot
func (p *MealPlan) RemoveMeal(day shared.Day, slot recipe.MealType) error {
	if p.status != StatusActive {
		return ErrPlanArchived
	}
	if _, ok := p.meals[day][slot]; !ok {
		return ErrSlotEmpty
	}
	delete(p.meals[day], slot)
	p.recalculate()
	return nil
}

// AttachInsights stores coaching notes for the plan
func (p *MealPlan) AttachInsights(in Insights) {
	p.insights = &in
	p.updatedAt = time.Now().UTC()
}

// Archive retires the plan
func (p *MealPlan) Archive() {
	if p.status == StatusArchived {
		return
	}
	p.status = StatusArchived
	p.updatedAt = time.Now().UTC()
}

func (p *MealPlan) recalculate() {
	p.nutrition = CalculateWeeklyNutrition(p.meals)
	p.updatedAt = time.Now().UTC()
}

func (p *MealPlan) addEvent(event shared.DomainEvent) {
	p.events = append(p.events, event)
}

// Events returns and clears pending domain events
func (p *MealPlan) Events() []shared.DomainEvent {
	events := p.events
	p.events = []shared.DomainEvent{}
	return events
}

func validateMeals(meals WeeklyMeals) error {
	if len(meals) != DaysPerWeek {
		return ErrIncompleteWeek
	}
	for _, day := range shared.Week {
		dm, ok := meals[day]
		if !ok {
			return ErrIncompleteWeek
		}
		for slot, m := range dm {
			if m.MealType != slot || !m.Fits(slot) {
				return ErrRecipeDoesNotFitSlot
			}
			if m.Servings < MinServings || m.Servings > MaxServings {
				return ErrInvalidServings
			}
		}
	}
	return nil
}
