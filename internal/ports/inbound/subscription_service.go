package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubscriptionService defines billing use cases
type SubscriptionService interface {
	Plans(ctx context.Context) []PlanDTO
	Status(ctx context.Context, userID uuid.UUID) (*SubscriptionStatusDTO, error)
	// HasActiveSubscription is the gate for subscribed procedures
	HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error)
	CreateCheckout(ctx context.Context, userID uuid.UUID, cmd CheckoutCommand) (*CheckoutDTO, error)
	CreatePortal(ctx context.Context, userID uuid.UUID) (*PortalDTO, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Sync(ctx context.Context, userID uuid.UUID) (*SubscriptionStatusDTO, error)
	SyncAll(ctx context.Context) (*SyncReport, error)
}

// CheckoutCommand selects the plan to buy
type CheckoutCommand struct {
	PlanID string `json:"plan_id" validate:"required,oneof=premium_monthly premium_yearly"`
}

// SyncCommand names the user to reconcile
type SyncCommand struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// PlanDTO describes a plan on the pricing page
type PlanDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PriceCents  int64    `json:"price_cents"`
	Interval    string   `json:"interval"`
	Features    []string `json:"features"`
	Purchasable bool     `json:"purchasable"`
}

// SubscriptionStatusDTO is the caller's billing state
type SubscriptionStatusDTO struct {
	Plan              string     `json:"plan"`
	Status            string     `json:"status"`
	Active            bool       `json:"active"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	HasBillingAccount bool       `json:"has_billing_account"`
}

// CheckoutDTO points the browser at hosted checkout
type CheckoutDTO struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// PortalDTO points the browser at the billing portal
type PortalDTO struct {
	URL string `json:"url"`
}

// SyncReport summarizes a reconciliation run
type SyncReport struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}
