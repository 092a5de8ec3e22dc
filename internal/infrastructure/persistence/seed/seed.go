// Package seed loads the bundled recipe catalog into an empty database
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/user"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed recipes.yaml
var catalogYAML []byte

// Catalog is the on-disk seed format
type Catalog struct {
	Recipes []RecipeSpec `yaml:"recipes"`
}

// RecipeSpec describes one seeded recipe
type RecipeSpec struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	MealTypes   []string         `yaml:"meal_types"`
	Score       int              `yaml:"score"`
	PrepMinutes int              `yaml:"prep_minutes"`
	CookMinutes int              `yaml:"cook_minutes"`
	Servings    int              `yaml:"servings"`
	Tags        []string         `yaml:"tags"`
	ImageURL    string           `yaml:"image_url"`
	Nutrition   NutritionSpec    `yaml:"nutrition"`
	Ingredients []IngredientSpec `yaml:"ingredients"`
	Steps       []string         `yaml:"steps"`
}

// NutritionSpec is per-serving nutrition
type NutritionSpec struct {
	Calories float64 `yaml:"calories"`
	Protein  float64 `yaml:"protein"`
	Carbs    float64 `yaml:"carbs"`
	Fat      float64 `yaml:"fat"`
	Fiber    float64 `yaml:"fiber"`
	Sugar    float64 `yaml:"sugar"`
	Sodium   float64 `yaml:"sodium"`
}

// IngredientSpec is one ingredient line
type IngredientSpec struct {
	Name     string  `yaml:"name"`
	Amount   float64 `yaml:"amount"`
	Unit     string  `yaml:"unit"`
	Optional bool    `yaml:"optional"`
}

// DefaultCatalog parses the embedded catalog
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// ParseCatalog decodes a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse seed catalog: %w", err)
	}
	return &catalog, nil
}

// Build turns the catalog entry into a published recipe owned by authorID
func (s RecipeSpec) Build(authorID uuid.UUID) (*recipe.Recipe, error) {
	r, err := recipe.NewRecipe(s.Title, s.Description, authorID)
	if err != nil {
		return nil, err
	}

	mealTypes := make([]recipe.MealType, 0, len(s.MealTypes))
	for _, raw := range s.MealTypes {
		mt, err := recipe.ParseMealType(raw)
		if err != nil {
			return nil, err
		}
		mealTypes = append(mealTypes, mt)
	}
	if err := r.SetMealTypes(mealTypes); err != nil {
		return nil, err
	}
	if err := r.SetAntiInflammatoryScore(s.Score); err != nil {
		return nil, err
	}
	if err := r.SetTiming(time.Duration(s.PrepMinutes)*time.Minute, time.Duration(s.CookMinutes)*time.Minute); err != nil {
		return nil, err
	}
	if err := r.SetServings(s.Servings); err != nil {
		return nil, err
	}
	if err := r.SetNutrition(recipe.NutritionInfo{
		Calories:      s.Nutrition.Calories,
		Protein:       s.Nutrition.Protein,
		Carbohydrates: s.Nutrition.Carbs,
		Fat:           s.Nutrition.Fat,
		Fiber:         s.Nutrition.Fiber,
		Sugar:         s.Nutrition.Sugar,
		Sodium:        s.Nutrition.Sodium,
	}); err != nil {
		return nil, err
	}
	if s.ImageURL != "" {
		if err := r.UpdateDetails(s.Title, s.Description, s.ImageURL); err != nil {
			return nil, err
		}
	}
	r.SetTags(s.Tags)

	for _, ing := range s.Ingredients {
		if err := r.AddIngredient(recipe.Ingredient{
			Name:     ing.Name,
			Amount:   ing.Amount,
			Unit:     ing.Unit,
			Optional: ing.Optional,
		}); err != nil {
			return nil, err
		}
	}
	for _, step := range s.Steps {
		if err := r.AddInstruction(recipe.Instruction{Description: step}); err != nil {
			return nil, err
		}
	}

	if err := r.Publish(); err != nil {
		return nil, fmt.Errorf("recipe %q: %w", s.Title, err)
	}
	return r, nil
}

// Options controls the seeded admin account
type Options struct {
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

// Result reports what a seed run created
type Result struct {
	AdminCreated   bool
	RecipesCreated int
}

// Seeder populates an empty database
type Seeder struct {
	users   outbound.UserRepository
	recipes outbound.RecipeRepository
	catalog *Catalog
	logger  *zap.Logger
}

// NewSeeder creates a seeder for the given catalog. A nil catalog uses the embedded one.
func NewSeeder(users outbound.UserRepository, recipes outbound.RecipeRepository, catalog *Catalog, logger *zap.Logger) (*Seeder, error) {
	if catalog == nil {
		var err error
		if catalog, err = DefaultCatalog(); err != nil {
			return nil, err
		}
	}
	return &Seeder{
		users:   users,
		recipes: recipes,
		catalog: catalog,
		logger:  logger.Named("seed"),
	}, nil
}

// Run creates the admin account and the catalog. Both steps are skipped when
// their data already exists, so Run is safe to repeat.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}

	admin, err := s.users.FindByEmail(ctx, opts.AdminEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin: %w", err)
	}
	if admin == nil {
		admin, err = user.NewUser(opts.AdminEmail, opts.AdminName, opts.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("invalid admin account: %w", err)
		}
		admin.PromoteToAdmin()
		if err := s.users.Create(ctx, admin); err != nil {
			return nil, fmt.Errorf("failed to create admin: %w", err)
		}
		result.AdminCreated = true
		s.logger.Info("Seeded admin account", zap.String("email", admin.Email()))
	}

	_, total, err := s.recipes.List(ctx, outbound.RecipeFilter{IncludeUnpublished: true, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	if total > 0 {
		s.logger.Info("Recipes already present, skipping catalog", zap.Int64("existing", total))
		return result, nil
	}

	recipes := make([]*recipe.Recipe, 0, len(s.catalog.Recipes))
	for _, spec := range s.catalog.Recipes {
		r, err := spec.Build(admin.ID())
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	if err := s.recipes.BulkCreate(ctx, recipes); err != nil {
		return nil, fmt.Errorf("failed to insert recipes: %w", err)
	}

	result.RecipesCreated = len(recipes)
	s.logger.Info("Seeded recipe catalog", zap.Int("recipes", len(recipes)))
	return result, nil
}
