package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/domain/nutrition"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/domain/subscription"
	"github.com/nourishlab/nourish/internal/domain/user"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockRecipeRepository provides a mock implementation of RecipeRepository
type MockRecipeRepository struct {
	mock.Mock
}

func (m *MockRecipeRepository) Create(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRecipeRepository) Update(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*recipe.Recipe)
	return r, args.Error(1)
}

func (m *MockRecipeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, ids)
	rs, _ := args.Get(0).([]*recipe.Recipe)
	return rs, args.Error(1)
}

func (m *MockRecipeRepository) List(ctx context.Context, filter outbound.RecipeFilter) ([]*recipe.Recipe, int64, error) {
	args := m.Called(ctx, filter)
	rs, _ := args.Get(0).([]*recipe.Recipe)
	return rs, args.Get(1).(int64), args.Error(2)
}

func (m *MockRecipeRepository) FindForPlanning(ctx context.Context, minScore, maxPrepMinutes int) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, minScore, maxPrepMinutes)
	rs, _ := args.Get(0).([]*recipe.Recipe)
	return rs, args.Error(1)
}

func (m *MockRecipeRepository) BulkCreate(ctx context.Context, recipes []*recipe.Recipe) error {
	return m.Called(ctx, recipes).Error(0)
}

func (m *MockRecipeRepository) AddFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return m.Called(ctx, userID, recipeID).Error(0)
}

func (m *MockRecipeRepository) RemoveFavorite(ctx context.Context, userID, recipeID uuid.UUID) error {
	return m.Called(ctx, userID, recipeID).Error(0)
}

func (m *MockRecipeRepository) IsFavorite(ctx context.Context, userID, recipeID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, recipeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecipeRepository) ListFavorites(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*recipe.Recipe, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	rs, _ := args.Get(0).([]*recipe.Recipe)
	return rs, args.Get(1).(int64), args.Error(2)
}

// MockUserRepository provides a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, offset, limit int) ([]*user.User, int64, error) {
	args := m.Called(ctx, offset, limit)
	us, _ := args.Get(0).([]*user.User)
	return us, args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockMealPlanRepository provides a mock implementation of MealPlanRepository
type MockMealPlanRepository struct {
	mock.Mock
}

func (m *MockMealPlanRepository) Save(ctx context.Context, plan *mealplan.MealPlan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockMealPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*mealplan.MealPlan, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*mealplan.MealPlan)
	return p, args.Error(1)
}

func (m *MockMealPlanRepository) FindActive(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*mealplan.MealPlan, error) {
	args := m.Called(ctx, userID, weekStart)
	p, _ := args.Get(0).(*mealplan.MealPlan)
	return p, args.Error(1)
}

func (m *MockMealPlanRepository) FindLatest(ctx context.Context, userID uuid.UUID) (*mealplan.MealPlan, error) {
	args := m.Called(ctx, userID)
	p, _ := args.Get(0).(*mealplan.MealPlan)
	return p, args.Error(1)
}

func (m *MockMealPlanRepository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*mealplan.MealPlan, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	ps, _ := args.Get(0).([]*mealplan.MealPlan)
	return ps, args.Get(1).(int64), args.Error(2)
}

func (m *MockMealPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockSubscriptionRepository provides a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, s *subscription.Subscription) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSubscriptionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*subscription.Subscription)
	return s, args.Error(1)
}

func (m *MockSubscriptionRepository) FindByCustomerID(ctx context.Context, customerID string) (*subscription.Subscription, error) {
	args := m.Called(ctx, customerID)
	s, _ := args.Get(0).(*subscription.Subscription)
	return s, args.Error(1)
}

func (m *MockSubscriptionRepository) ListWithProvider(ctx context.Context) ([]*subscription.Subscription, error) {
	args := m.Called(ctx)
	ss, _ := args.Get(0).([]*subscription.Subscription)
	return ss, args.Error(1)
}

func (m *MockSubscriptionRepository) HasActive(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, userID, now)
	return args.Bool(0), args.Error(1)
}

// MockNutritionRepository provides a mock implementation of NutritionRepository
type MockNutritionRepository struct {
	mock.Mock
}

func (m *MockNutritionRepository) CreateEntry(ctx context.Context, e *nutrition.FoodLogEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockNutritionRepository) FindEntry(ctx context.Context, id uuid.UUID) (*nutrition.FoodLogEntry, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*nutrition.FoodLogEntry)
	return e, args.Error(1)
}

func (m *MockNutritionRepository) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockNutritionRepository) ListEntries(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*nutrition.FoodLogEntry, error) {
	args := m.Called(ctx, userID, from, to)
	es, _ := args.Get(0).([]*nutrition.FoodLogEntry)
	return es, args.Error(1)
}

func (m *MockNutritionRepository) GetGoals(ctx context.Context, userID uuid.UUID) (*nutrition.Goals, error) {
	args := m.Called(ctx, userID)
	g, _ := args.Get(0).(*nutrition.Goals)
	return g, args.Error(1)
}

func (m *MockNutritionRepository) SaveGoals(ctx context.Context, goals nutrition.Goals) error {
	return m.Called(ctx, goals).Error(0)
}

// MockBillingProvider provides a mock implementation of BillingProvider
type MockBillingProvider struct {
	mock.Mock
}

func (m *MockBillingProvider) CreateCustomer(ctx context.Context, userID uuid.UUID, email, name string) (string, error) {
	args := m.Called(ctx, userID, email, name)
	return args.String(0), args.Error(1)
}

func (m *MockBillingProvider) CreateCheckoutSession(ctx context.Context, req outbound.CheckoutRequest) (*outbound.CheckoutSession, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*outbound.CheckoutSession)
	return s, args.Error(1)
}

func (m *MockBillingProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	args := m.Called(ctx, customerID, returnURL)
	return args.String(0), args.Error(1)
}

func (m *MockBillingProvider) GetSubscription(ctx context.Context, id string) (*outbound.ProviderSubscription, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*outbound.ProviderSubscription)
	return s, args.Error(1)
}

func (m *MockBillingProvider) ParseWebhook(payload []byte, signature string) (*outbound.BillingEvent, error) {
	args := m.Called(payload, signature)
	e, _ := args.Get(0).(*outbound.BillingEvent)
	return e, args.Error(1)
}

// MockPlanAdvisor provides a mock implementation of PlanAdvisor
type MockPlanAdvisor struct {
	mock.Mock
}

func (m *MockPlanAdvisor) Advise(ctx context.Context, req outbound.AdviceRequest) (*mealplan.Insights, error) {
	args := m.Called(ctx, req)
	in, _ := args.Get(0).(*mealplan.Insights)
	return in, args.Error(1)
}

// MockFoodLookup provides a mock implementation of FoodLookup
type MockFoodLookup struct {
	mock.Mock
}

func (m *MockFoodLookup) Search(ctx context.Context, query string, limit int) ([]outbound.FoodItem, error) {
	args := m.Called(ctx, query, limit)
	items, _ := args.Get(0).([]outbound.FoodItem)
	return items, args.Error(1)
}

// MockTokenIssuer provides a mock implementation of TokenIssuer
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(ctx context.Context, userID uuid.UUID, role string) (*outbound.TokenPair, error) {
	args := m.Called(ctx, userID, role)
	p, _ := args.Get(0).(*outbound.TokenPair)
	return p, args.Error(1)
}

func (m *MockTokenIssuer) Verify(ctx context.Context, token string, kind outbound.TokenKind) (*outbound.TokenClaims, error) {
	args := m.Called(ctx, token, kind)
	c, _ := args.Get(0).(*outbound.TokenClaims)
	return c, args.Error(1)
}

func (m *MockTokenIssuer) Revoke(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

// RecordingPublisher captures published events
type RecordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *RecordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

// Names returns the names of captured events in order
func (p *RecordingPublisher) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.EventName())
	}
	return names
}

// MockCacheRepository provides a mock implementation of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	v, _ := args.Get(0).([]byte)
	return v, args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	args := m.Called(ctx, key, ttl)
	return args.Get(0).(int64), args.Error(1)
}

// MapCache is a goroutine-safe CacheRepository ignoring TTLs
type MapCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	counters map[string]int64
}

// NewMapCache creates an empty cache
func NewMapCache() *MapCache {
	return &MapCache{data: make(map[string][]byte), counters: make(map[string]int64)}
}

func (c *MapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, outbound.ErrCacheMiss
	}
	return v, nil
}

func (c *MapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *MapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *MapCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *MapCache) Increment(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}

var (
	_ outbound.RecipeRepository       = (*MockRecipeRepository)(nil)
	_ outbound.UserRepository         = (*MockUserRepository)(nil)
	_ outbound.MealPlanRepository     = (*MockMealPlanRepository)(nil)
	_ outbound.SubscriptionRepository = (*MockSubscriptionRepository)(nil)
	_ outbound.NutritionRepository    = (*MockNutritionRepository)(nil)
	_ outbound.BillingProvider        = (*MockBillingProvider)(nil)
	_ outbound.PlanAdvisor            = (*MockPlanAdvisor)(nil)
	_ outbound.FoodLookup             = (*MockFoodLookup)(nil)
	_ outbound.TokenIssuer            = (*MockTokenIssuer)(nil)
	_ outbound.EventPublisher         = (*RecordingPublisher)(nil)
	_ outbound.CacheRepository        = (*MapCache)(nil)
	_ outbound.CacheRepository        = (*MockCacheRepository)(nil)
)
