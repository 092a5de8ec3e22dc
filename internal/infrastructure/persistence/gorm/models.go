// Package gorm provides GORM model definitions and repositories
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserModel represents the GORM model for users
type UserModel struct {
	ID           uuid.UUID            `gorm:"type:char(36);primaryKey"`
	Email        string               `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name         string               `gorm:"type:varchar(255);not null"`
	PasswordHash string               `gorm:"type:varchar(255);not null"`
	IsActive     bool                 `gorm:"default:true"`
	Role         string               `gorm:"type:varchar(20);default:'user';index"`
	HasProfile   bool                 `gorm:"default:false"`
	Profile      UserProfileModel     `gorm:"embedded;embeddedPrefix:profile_"`
	Preferences  UserPreferencesModel `gorm:"embedded;embeddedPrefix:pref_"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// UserProfileModel represents the embedded body profile
type UserProfileModel struct {
	Age                int
	Sex                string `gorm:"type:varchar(10)"`
	HeightCm           float64
	WeightKg           float64
	ActivityLevel      string `gorm:"type:varchar(20)"`
	Goal               string `gorm:"type:varchar(20)"`
	DailyCalorieTarget int
}

// UserPreferencesModel represents embedded meal planning preferences
type UserPreferencesModel struct {
	MealTypes           StringSlice `gorm:"type:json"`
	CookingDays         StringSlice `gorm:"type:json"`
	MaxPrepMinutes      int         `gorm:"default:0"`
	DietaryRestrictions StringSlice `gorm:"type:json"`
	Allergies           StringSlice `gorm:"type:json"`
}

// RecipeModel represents the GORM model for recipes
type RecipeModel struct {
	ID          uuid.UUID `gorm:"type:char(36);primaryKey"`
	Version     int64     `gorm:"default:1"`
	Title       string    `gorm:"type:varchar(200);not null;index"`
	Description string    `gorm:"type:text"`
	AuthorID    uuid.UUID `gorm:"type:char(36);not null;index"`
	ImageURL    string    `gorm:"type:text"`

	Ingredients  JSON[[]IngredientRecord]  `gorm:"type:json"`
	Instructions JSON[[]InstructionRecord] `gorm:"type:json"`

	// Per-serving nutrition
	Calories      float64 `gorm:"default:0"`
	Protein       float64 `gorm:"default:0"`
	Carbohydrates float64 `gorm:"default:0"`
	Fat           float64 `gorm:"default:0"`
	Fiber         float64 `gorm:"default:0"`
	Sugar         float64 `gorm:"default:0"`
	Sodium        float64 `gorm:"default:0"`

	MealTypes             StringSlice `gorm:"type:json"`
	AntiInflammatoryScore int         `gorm:"column:anti_inflammatory_score;default:5;index"`
	Tags                  StringSlice `gorm:"type:json"`

	// Timing (stored in minutes)
	PrepTimeMinutes  int `gorm:"column:prep_time_minutes;default:0;index"`
	CookTimeMinutes  int `gorm:"column:cook_time_minutes;default:0"`
	TotalTimeMinutes int `gorm:"column:total_time_minutes;default:0"`
	Servings         int `gorm:"default:1"`

	Status      string     `gorm:"type:varchar(20);default:'draft';index"`
	PublishedAt *time.Time `gorm:"index"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// IngredientRecord is the stored form of an ingredient
type IngredientRecord struct {
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Optional bool    `json:"optional,omitempty"`
}

// InstructionRecord is the stored form of an instruction
type InstructionRecord struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
}

// FavoriteModel represents the GORM model for favorite recipes
type FavoriteModel struct {
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	RecipeID  uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	CreatedAt time.Time `gorm:"index"`
}

// MealPlanModel represents the GORM model for weekly meal plans
type MealPlanModel struct {
	ID            uuid.UUID                                     `gorm:"type:char(36);primaryKey"`
	UserID        uuid.UUID                                     `gorm:"type:char(36);not null;index:idx_meal_plans_user_week"`
	WeekStart     time.Time                                     `gorm:"not null;index:idx_meal_plans_user_week"`
	Status        string                                        `gorm:"type:varchar(20);default:'active';index"`
	Meals         JSON[map[string]map[string]PlannedMealRecord] `gorm:"type:json"`
	Insights      JSON[*InsightsRecord]                         `gorm:"type:json"`
	MealCount     int                                           `gorm:"default:0"`
	DailyCalories float64                                       `gorm:"default:0"`
	CreatedAt     time.Time                                     `gorm:"index"`
	UpdatedAt     time.Time
}

// PlannedMealRecord is the stored snapshot of a planned meal
type PlannedMealRecord struct {
	RecipeID              uuid.UUID `json:"recipe_id"`
	Title                 string    `json:"title"`
	MealType              string    `json:"meal_type"`
	MealTypes             []string  `json:"meal_types"`
	Servings              float64   `json:"servings"`
	AntiInflammatoryScore int       `json:"anti_inflammatory_score"`
	PrepMinutes           int       `json:"prep_minutes"`
	Calories              float64   `json:"calories"`
	Protein               float64   `json:"protein"`
	Carbohydrates         float64   `json:"carbohydrates"`
	Fat                   float64   `json:"fat"`
	Fiber                 float64   `json:"fiber"`
	Sugar                 float64   `json:"sugar"`
	Sodium                float64   `json:"sodium"`
}

// InsightsRecord is the stored form of plan insights
type InsightsRecord struct {
	Summary string   `json:"summary"`
	Tips    []string `json:"tips"`
	Source  string   `json:"source"`
}

// SubscriptionModel represents the GORM model for billing subscriptions
type SubscriptionModel struct {
	ID                     uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID                 uuid.UUID `gorm:"type:char(36);not null;uniqueIndex"`
	CustomerID             string    `gorm:"type:varchar(100);index"`
	ProviderSubscriptionID string    `gorm:"type:varchar(100);index"`
	Plan                   string    `gorm:"type:varchar(40);default:'free'"`
	Status                 string    `gorm:"type:varchar(30);index"`
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool `gorm:"default:false"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// FoodLogModel represents the GORM model for food log entries
type FoodLogModel struct {
	ID        uuid.UUID  `gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID  `gorm:"type:char(36);not null;index:idx_food_logs_user_date"`
	Date      time.Time  `gorm:"not null;index:idx_food_logs_user_date"`
	MealType  string     `gorm:"type:varchar(20);not null"`
	RecipeID  *uuid.UUID `gorm:"type:char(36);index"`
	Name      string     `gorm:"type:varchar(200);not null"`
	Servings  float64    `gorm:"not null"`
	Calories  float64
	Protein   float64
	Carbs     float64
	Fat       float64
	Fiber     float64
	Score     int
	CreatedAt time.Time
}

// NutritionGoalModel represents the GORM model for daily nutrition goals
type NutritionGoalModel struct {
	UserID    uuid.UUID `gorm:"type:char(36);primaryKey"`
	Calories  float64
	Protein   float64
	Carbs     float64
	Fat       float64
	MinScore  float64
	UpdatedAt time.Time
}

// StringSlice custom type for handling string slices in JSON
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// JSON stores any JSON-encodable value in a single column
type JSON[T any] struct {
	Data T
}

// NewJSON wraps v for storage
func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{Data: v}
}

// Scan implements the sql.Scanner interface
func (j *JSON[T]) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		var zero T
		j.Data = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &j.Data)
	case string:
		return json.Unmarshal([]byte(v), &j.Data)
	default:
		return fmt.Errorf("cannot scan %T into JSON column", value)
	}
}

// Value implements the driver.Valuer interface
func (j JSON[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// AllModels lists every model managed by AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&UserModel{},
		&RecipeModel{},
		&FavoriteModel{},
		&MealPlanModel{},
		&SubscriptionModel{},
		&FoodLogModel{},
		&NutritionGoalModel{},
	}
}

// BeforeCreate hook for UserModel
func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// BeforeCreate hook for RecipeModel
func (r *RecipeModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName methods for custom table names
func (UserModel) TableName() string {
	return "users"
}

func (RecipeModel) TableName() string {
	return "recipes"
}

func (FavoriteModel) TableName() string {
	return "favorites"
}

func (MealPlanModel) TableName() string {
	return "meal_plans"
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

func (FoodLogModel) TableName() string {
	return "food_logs"
}

func (NutritionGoalModel) TableName() string {
	return "nutrition_goals"
}
