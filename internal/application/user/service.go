// Package user provides the application layer for accounts, sessions and profiles
package user

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/domain/user"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UserService implements user management use cases
type UserService struct {
	userRepo      outbound.UserRepository
	tokens        outbound.TokenIssuer
	events        outbound.EventPublisher
	plans         inbound.MealPlanService
	nutrition     inbound.NutritionService
	subscriptions inbound.SubscriptionService
	logger        *zap.Logger
	now           func() time.Time
}

// NewUserService creates a new user service
func NewUserService(
	userRepo outbound.UserRepository,
	tokens outbound.TokenIssuer,
	events outbound.EventPublisher,
	plans inbound.MealPlanService,
	nutrition inbound.NutritionService,
	subscriptions inbound.SubscriptionService,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:      userRepo,
		tokens:        tokens,
		events:        events,
		plans:         plans,
		nutrition:     nutrition,
		subscriptions: subscriptions,
		logger:        logger.Named("user-service"),
		now:           time.Now,
	}
}

var _ inbound.UserService = (*UserService)(nil)

// Register creates a new user account
func (s *UserService) Register(ctx context.Context, cmd inbound.RegisterCommand) (*inbound.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	s.logger.Info("Registering new user", zap.String("email", email))

	// Check if user already exists
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, errors.NewDatabaseError("find user", err)
	}
	if existing != nil {
		return nil, errors.NewEmailAlreadyExistsError(email)
	}

	newUser, err := user.NewUser(email, cmd.Name, cmd.Password)
	if err != nil {
		return nil, domainError(err)
	}
	newUser.RecordLogin()

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, errors.NewDatabaseError("create user", err)
	}
	s.events.Publish(ctx, newUser.Events()...)

	result, err := s.issue(ctx, newUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered successfully",
		zap.String("user_id", newUser.ID().String()),
		zap.String("email", newUser.Email()),
	)
	return result, nil
}

// Login authenticates a user
func (s *UserService) Login(ctx context.Context, cmd inbound.LoginCommand) (*inbound.AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	s.logger.Info("User login attempt", zap.String("email", email))

	entity, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, errors.NewDatabaseError("find user", err)
	}
	if entity == nil {
		return nil, errors.NewInvalidCredentialsError()
	}

	if err := entity.CheckPassword(cmd.Password); err != nil {
		s.logger.Warn("Invalid password attempt", zap.String("email", email))
		return nil, errors.NewInvalidCredentialsError()
	}

	if !entity.IsActive() {
		return nil, errors.NewForbiddenError("Account is deactivated")
	}

	entity.RecordLogin()
	if err := s.userRepo.Update(ctx, entity); err != nil {
		s.logger.Error("Failed to update last login", zap.Error(err))
	}

	result, err := s.issue(ctx, entity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User logged in successfully", zap.String("user_id", entity.ID().String()))
	return result, nil
}

// Refresh exchanges a refresh token for a new token pair; the old refresh token is revoked
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*inbound.AuthResult, error) {
	claims, err := s.tokens.Verify(ctx, refreshToken, outbound.TokenRefresh)
	if err != nil {
		return nil, errors.NewUnauthorizedError("Invalid or expired refresh token").WithCause(err)
	}

	entity, err := s.load(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errors.CodeUserNotFound) {
			return nil, errors.NewUnauthorizedError("Invalid or expired refresh token")
		}
		return nil, err
	}
	if !entity.IsActive() {
		return nil, errors.NewForbiddenError("Account is deactivated")
	}

	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		s.logger.Warn("Failed to revoke rotated refresh token", zap.Error(err))
	}

	return s.issue(ctx, entity)
}

// Logout revokes the given tokens
func (s *UserService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	for _, token := range []string{accessToken, refreshToken} {
		if token == "" {
			continue
		}
		if err := s.tokens.Revoke(ctx, token); err != nil {
			return errors.Wrap(err, "Failed to revoke session")
		}
	}
	return nil
}

// GetMe returns the caller's account
func (s *UserService) GetMe(ctx context.Context, userID uuid.UUID) (*inbound.UserDTO, error) {
	entity, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return EntityToDTO(entity), nil
}

// UpdateProfile replaces the body profile
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, cmd inbound.UpdateProfileCommand) (*inbound.UserDTO, error) {
	entity, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := user.Profile{
		Age:                cmd.Age,
		Sex:                user.Sex(cmd.Sex),
		HeightCm:           cmd.HeightCm,
		WeightKg:           cmd.WeightKg,
		ActivityLevel:      user.ActivityLevel(cmd.ActivityLevel),
		Goal:               user.Goal(cmd.Goal),
		DailyCalorieTarget: cmd.DailyCalorieTarget,
	}
	if err := entity.UpdateProfile(profile); err != nil {
		return nil, domainError(err)
	}

	if err := s.userRepo.Update(ctx, entity); err != nil {
		return nil, errors.NewDatabaseError("update profile", err)
	}
	s.events.Publish(ctx, entity.Events()...)

	s.logger.Info("User profile updated",
		zap.String("user_id", userID.String()),
		zap.Int("caloric_needs", entity.CaloricNeeds()),
	)
	return EntityToDTO(entity), nil
}

// UpdatePreferences replaces meal planning preferences
func (s *UserService) UpdatePreferences(ctx context.Context, userID uuid.UUID, cmd inbound.UpdatePreferencesCommand) (*inbound.UserDTO, error) {
	entity, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	prefs, err := preferencesFromCommand(cmd)
	if err != nil {
		return nil, domainError(err)
	}
	if err := entity.UpdatePreferences(prefs); err != nil {
		return nil, domainError(err)
	}

	if err := s.userRepo.Update(ctx, entity); err != nil {
		return nil, errors.NewDatabaseError("update preferences", err)
	}

	s.logger.Info("User preferences updated", zap.String("user_id", userID.String()))
	return EntityToDTO(entity), nil
}

// ChangePassword changes user password
func (s *UserService) ChangePassword(ctx context.Context, userID uuid.UUID, cmd inbound.ChangePasswordCommand) error {
	entity, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	if err := entity.ChangePassword(cmd.CurrentPassword, cmd.NewPassword); err != nil {
		if stderrors.Is(err, user.ErrWrongPassword) {
			return errors.NewInvalidCredentialsError()
		}
		return domainError(err)
	}

	if err := s.userRepo.Update(ctx, entity); err != nil {
		return errors.NewDatabaseError("save password", err)
	}

	s.logger.Info("User password changed", zap.String("user_id", userID.String()))
	return nil
}

// Dashboard loads the current plan, today's summary and billing status concurrently
func (s *UserService) Dashboard(ctx context.Context, userID uuid.UUID) (*inbound.DashboardDTO, error) {
	entity, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	dash := &inbound.DashboardDTO{User: *EntityToDTO(entity)}
	today := shared.DateOf(s.now())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		plan, err := s.plans.CurrentPlan(gctx, userID)
		if err != nil {
			return err
		}
		dash.CurrentPlan = plan
		return nil
	})
	g.Go(func() error {
		summary, err := s.nutrition.DailySummary(gctx, userID, today)
		if err != nil {
			return err
		}
		dash.Today = *summary
		return nil
	})
	g.Go(func() error {
		status, err := s.subscriptions.Status(gctx, userID)
		if err != nil {
			return err
		}
		dash.Subscription = *status
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Dashboard load failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, errors.Wrap(err, "Failed to load dashboard")
	}
	return dash, nil
}

// ListUsers lists accounts for administrators
func (s *UserService) ListUsers(ctx context.Context, params inbound.PaginationParams) (*inbound.UserList, error) {
	params = params.Normalize()
	users, total, err := s.userRepo.List(ctx, params.Offset(), params.PageSize)
	if err != nil {
		return nil, errors.NewDatabaseError("list users", err)
	}

	list := &inbound.UserList{
		Users:      make([]inbound.UserDTO, 0, len(users)),
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: params.TotalPages(total),
	}
	for _, u := range users {
		list.Users = append(list.Users, *EntityToDTO(u))
	}
	return list, nil
}

// SetRole changes a user's role
func (s *UserService) SetRole(ctx context.Context, cmd inbound.SetRoleCommand) (*inbound.UserDTO, error) {
	entity, err := s.load(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if err := entity.SetRole(user.Role(cmd.Role)); err != nil {
		return nil, domainError(err)
	}
	if err := s.userRepo.Update(ctx, entity); err != nil {
		return nil, errors.NewDatabaseError("update role", err)
	}

	s.logger.Info("User role changed",
		zap.String("user_id", cmd.UserID.String()),
		zap.String("role", cmd.Role),
	)
	return EntityToDTO(entity), nil
}

// Helper methods

func (s *UserService) load(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	entity, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("find user", err)
	}
	if entity == nil {
		return nil, errors.NewUserNotFoundError(userID.String())
	}
	return entity, nil
}

func (s *UserService) issue(ctx context.Context, entity *user.User) (*inbound.AuthResult, error) {
	pair, err := s.tokens.Issue(ctx, entity.ID(), string(entity.Role()))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to issue session")
	}
	return &inbound.AuthResult{
		User:             *EntityToDTO(entity),
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "Bearer",
		ExpiresAt:        pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// domainError translates user domain errors into application errors
func domainError(err error) error {
	return errors.NewValidationError(err.Error()).WithCause(err)
}

func preferencesFromCommand(cmd inbound.UpdatePreferencesCommand) (user.Preferences, error) {
	prefs := user.Preferences{
		MealTypes:           make([]recipe.MealType, 0, len(cmd.MealTypes)),
		CookingDays:         make([]shared.Day, 0, len(cmd.CookingDays)),
		MaxPrepMinutes:      cmd.MaxPrepMinutes,
		DietaryRestrictions: cmd.DietaryRestrictions,
		Allergies:           cmd.Allergies,
	}
	for _, m := range cmd.MealTypes {
		mt, err := recipe.ParseMealType(m)
		if err != nil {
			return prefs, err
		}
		prefs.MealTypes = append(prefs.MealTypes, mt)
	}
	for _, d := range cmd.CookingDays {
		day, err := shared.ParseDay(d)
		if err != nil {
			return prefs, err
		}
		prefs.CookingDays = append(prefs.CookingDays, day)
	}
	return prefs, nil
}

// EntityToDTO converts a user to its DTO
func EntityToDTO(entity *user.User) *inbound.UserDTO {
	prefs := entity.Preferences()
	dto := &inbound.UserDTO{
		ID:       entity.ID(),
		Email:    entity.Email(),
		Name:     entity.Name(),
		Role:     string(entity.Role()),
		IsActive: entity.IsActive(),
		Preferences: inbound.PreferencesDTO{
			MealTypes:           make([]string, 0, len(prefs.MealTypes)),
			CookingDays:         make([]string, 0, len(prefs.CookingDays)),
			MaxPrepMinutes:      prefs.MaxPrepMinutes,
			DietaryRestrictions: prefs.DietaryRestrictions,
			Allergies:           prefs.Allergies,
		},
		CaloricNeeds: entity.CaloricNeeds(),
		CreatedAt:    entity.CreatedAt(),
		LastLoginAt:  entity.LastLoginAt(),
	}
	for _, m := range prefs.MealTypes {
		dto.Preferences.MealTypes = append(dto.Preferences.MealTypes, string(m))
	}
	for _, d := range prefs.CookingDays {
		dto.Preferences.CookingDays = append(dto.Preferences.CookingDays, string(d))
	}
	if p := entity.Profile(); p != nil {
		dto.Profile = &inbound.ProfileDTO{
			Age:                p.Age,
			Sex:                string(p.Sex),
			HeightCm:           p.HeightCm,
			WeightKg:           p.WeightKg,
			ActivityLevel:      string(p.ActivityLevel),
			Goal:               string(p.Goal),
			DailyCalorieTarget: p.DailyCalorieTarget,
		}
	}
	return dto
}
