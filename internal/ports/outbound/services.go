package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/domain/subscription"
)

// BillingProvider is the payments integration
type BillingProvider interface {
	CreateCustomer(ctx context.Context, userID uuid.UUID, email, name string) (string, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	GetSubscription(ctx context.Context, providerSubscriptionID string) (*ProviderSubscription, error)
	// ParseWebhook verifies the signature and decodes the payload
	ParseWebhook(payload []byte, signature string) (*BillingEvent, error)
}

// CheckoutRequest describes a hosted checkout for one price
type CheckoutRequest struct {
	UserID     uuid.UUID
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the provider's hosted checkout
type CheckoutSession struct {
	ID  string
	URL string
}

// ProviderSubscription is the provider's view of a subscription
type ProviderSubscription struct {
	ID                string
	CustomerID        string
	Status            subscription.Status
	PriceID           string
	CurrentPeriodEnd  time.Time
	CancelAtPeriodEnd bool
}

// BillingEventType enumerates the provider events the service reacts to
type BillingEventType string

const (
	BillingCheckoutCompleted    BillingEventType = "checkout.session.completed"
	BillingSubscriptionCreated  BillingEventType = "customer.subscription.created"
	BillingSubscriptionUpdated  BillingEventType = "customer.subscription.updated"
	BillingSubscriptionDeleted  BillingEventType = "customer.subscription.deleted"
	BillingInvoicePaymentFailed BillingEventType = "invoice.payment_failed"
)

// BillingEvent is a verified, provider-neutral webhook event
type BillingEvent struct {
	ID         string
	Type       BillingEventType
	CustomerID string
	// UserID comes from checkout metadata when present
	UserID       *uuid.UUID
	Subscription *ProviderSubscription
	// SubscriptionID is set for events that only reference a subscription
	SubscriptionID string
}

// FoodLookup searches an external food database
type FoodLookup interface {
	Search(ctx context.Context, query string, limit int) ([]FoodItem, error)
}

// FoodItem is a food with nutrients per 100 g
type FoodItem struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand,omitempty"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Source   string  `json:"source"`
}

// PlanAdvisor produces coaching insights for a meal plan
type PlanAdvisor interface {
	Advise(ctx context.Context, req AdviceRequest) (*mealplan.Insights, error)
}

// AdviceRequest carries what the advisor may see about a plan
type AdviceRequest struct {
	DailyCalorieTarget int
	Nutrition          mealplan.WeeklyNutrition
	Meals              mealplan.WeeklyMeals
	DietaryNotes       []string
}

// EventPublisher fans domain events out to subscribers
type EventPublisher interface {
	Publish(ctx context.Context, events ...shared.DomainEvent)
}

// TokenKind distinguishes access from refresh tokens
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// TokenPair is issued on login and refresh
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenClaims are the verified contents of a token
type TokenClaims struct {
	TokenID   string
	UserID    uuid.UUID
	Role      string
	Kind      TokenKind
	ExpiresAt time.Time
}

// TokenIssuer signs, verifies and revokes session tokens
type TokenIssuer interface {
	Issue(ctx context.Context, userID uuid.UUID, role string) (*TokenPair, error)
	// Verify checks signature, expiry, kind and revocation
	Verify(ctx context.Context, token string, kind TokenKind) (*TokenClaims, error)
	Revoke(ctx context.Context, token string) error
}
