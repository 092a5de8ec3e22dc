package recipe

import "errors"

// Domain errors for recipe operations

var (
	// Entity validation errors
	ErrTitleTooShort      = errors.New("recipe title must be at least 3 characters")
	ErrTitleTooLong       = errors.New("recipe title must not exceed 200 characters")
	ErrDescriptionTooLong = errors.New("recipe description must not exceed 2000 characters")
	ErrInvalidServings    = errors.New("servings must be greater than 0")
	ErrInvalidScore       = errors.New("anti-inflammatory score must be between 1 and 10")
	ErrInvalidMealType    = errors.New("unknown meal type")
	ErrNoMealTypes        = errors.New("recipe must have at least one meal type")
	ErrNegativeDuration   = errors.New("prep and cook time cannot be negative")
	ErrNegativeNutrient   = errors.New("nutrition values cannot be negative")
	ErrNoIngredients      = errors.New("recipe must have at least one ingredient")
	ErrNoInstructions     = errors.New("recipe must have at least one instruction")

	// State transition errors
	ErrInvalidStatusTransition = errors.New("invalid recipe status transition")
	ErrRecipeNotFound          = errors.New("recipe not found")
	ErrRecipeArchived          = errors.New("cannot modify archived recipe")
)
