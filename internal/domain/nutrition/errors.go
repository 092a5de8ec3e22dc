package nutrition

import "errors"

var (
	ErrMissingUser      = errors.New("food log entry requires a user")
	ErrInvalidName      = errors.New("food name must be between 1 and 200 characters")
	ErrInvalidServings  = errors.New("servings must be greater than 0 and at most 20")
	ErrNegativeNutrient = errors.New("nutrition values cannot be negative")
	ErrInvalidGoals     = errors.New("nutrition goals out of range")
	ErrEntryNotFound    = errors.New("food log entry not found")
)
