package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserService defines account, session and profile use cases
type UserService interface {
	Register(ctx context.Context, cmd RegisterCommand) (*AuthResult, error)
	Login(ctx context.Context, cmd LoginCommand) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	// Logout revokes the given tokens; empty tokens are skipped
	Logout(ctx context.Context, accessToken, refreshToken string) error

	GetMe(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, cmd UpdateProfileCommand) (*UserDTO, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, cmd UpdatePreferencesCommand) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, cmd ChangePasswordCommand) error
	Dashboard(ctx context.Context, userID uuid.UUID) (*DashboardDTO, error)

	// Administration
	ListUsers(ctx context.Context, params PaginationParams) (*UserList, error)
	SetRole(ctx context.Context, cmd SetRoleCommand) (*UserDTO, error)
}

// RegisterCommand contains user registration data
type RegisterCommand struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginCommand contains user login data
type LoginCommand struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshCommand carries a refresh token
type RefreshCommand struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordCommand replaces the password after checking the current one
type ChangePasswordCommand struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

// UpdateProfileCommand replaces the body profile
type UpdateProfileCommand struct {
	Age                int     `json:"age" validate:"omitempty,min=13,max=120"`
	Sex                string  `json:"sex" validate:"omitempty,oneof=female male"`
	HeightCm           float64 `json:"height_cm" validate:"omitempty,gt=0,lte=260"`
	WeightKg           float64 `json:"weight_kg" validate:"omitempty,gt=0,lte=400"`
	ActivityLevel      string  `json:"activity_level" validate:"omitempty,oneof=sedentary light moderate active very_active"`
	Goal               string  `json:"goal" validate:"omitempty,oneof=lose maintain gain"`
	DailyCalorieTarget int     `json:"daily_calorie_target" validate:"omitempty,min=1000,max=10000"`
}

// UpdatePreferencesCommand replaces meal planning preferences
type UpdatePreferencesCommand struct {
	MealTypes           []string `json:"meal_types" validate:"required,min=1,max=4,unique,dive,oneof=breakfast lunch dinner snack"`
	CookingDays         []string `json:"cooking_days" validate:"max=7,unique,dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	MaxPrepMinutes      int      `json:"max_prep_minutes" validate:"omitempty,min=5,max=480"`
	DietaryRestrictions []string `json:"dietary_restrictions" validate:"max=20,dive,min=1,max=50"`
	Allergies           []string `json:"allergies" validate:"max=20,dive,min=1,max=50"`
}

// SetRoleCommand changes a user's role
type SetRoleCommand struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Role   string    `json:"role" validate:"required,oneof=user admin"`
}

// UserDTO represents user data transfer object
type UserDTO struct {
	ID           uuid.UUID      `json:"id"`
	Email        string         `json:"email"`
	Name         string         `json:"name"`
	Role         string         `json:"role"`
	IsActive     bool           `json:"is_active"`
	Profile      *ProfileDTO    `json:"profile,omitempty"`
	Preferences  PreferencesDTO `json:"preferences"`
	CaloricNeeds int            `json:"caloric_needs"`
	CreatedAt    time.Time      `json:"created_at"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
}

// ProfileDTO mirrors the body profile
type ProfileDTO struct {
	Age                int     `json:"age,omitempty"`
	Sex                string  `json:"sex,omitempty"`
	HeightCm           float64 `json:"height_cm,omitempty"`
	WeightKg           float64 `json:"weight_kg,omitempty"`
	ActivityLevel      string  `json:"activity_level,omitempty"`
	Goal               string  `json:"goal,omitempty"`
	DailyCalorieTarget int     `json:"daily_calorie_target,omitempty"`
}

// PreferencesDTO mirrors meal planning preferences
type PreferencesDTO struct {
	MealTypes           []string `json:"meal_types"`
	CookingDays         []string `json:"cooking_days"`
	MaxPrepMinutes      int      `json:"max_prep_minutes,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	Allergies           []string `json:"allergies,omitempty"`
}

// AuthResult contains authentication response data
type AuthResult struct {
	User             UserDTO   `json:"user"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// UserList for paginated results
type UserList struct {
	Users      []UserDTO `json:"users"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// DashboardDTO gathers what the dashboard shows in one call
type DashboardDTO struct {
	User         UserDTO               `json:"user"`
	CurrentPlan  *MealPlanDTO          `json:"current_plan,omitempty"`
	Today        DailySummaryDTO       `json:"today"`
	Subscription SubscriptionStatusDTO `json:"subscription"`
}
