package mealplan

import "errors"

var (
	ErrMissingUser          = errors.New("meal plan requires an owner")
	ErrIncompleteWeek       = errors.New("meal plan must contain all seven days")
	ErrRecipeDoesNotFitSlot = errors.New("recipe does not qualify for this meal slot")
	ErrInvalidServings      = errors.New("servings must be between 0.5 and 3")
	ErrPlanArchived         = errors.New("archived meal plans cannot be changed")
	ErrSlotEmpty            = errors.New("meal slot is empty")
	ErrPlanNotFound         = errors.New("meal plan not found")
	ErrNoCandidates         = errors.New("no recipe qualifies for this slot")
)
