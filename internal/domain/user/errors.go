package user

import "errors"

var (
	ErrEmailRequired       = errors.New("email is required")
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrInvalidName         = errors.New("name must be between 2 and 100 characters")
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong     = errors.New("password must not exceed 72 bytes")
	ErrWrongPassword       = errors.New("current password is incorrect")
	ErrInvalidRole         = errors.New("unknown role")
	ErrInvalidProfile      = errors.New("profile values out of range")
	ErrInvalidPreferences  = errors.New("invalid meal planning preferences")
	ErrNoMealTypes         = errors.New("at least one meal type is required")
	ErrDuplicatePreference = errors.New("meal types and cooking days must not repeat")
)
