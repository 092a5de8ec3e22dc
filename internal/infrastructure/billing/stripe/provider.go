// Package stripe implements the billing provider on top of the Stripe API
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	sdk "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/nourishlab/nourish/internal/domain/subscription"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/healthcheck"
)

const (
	serviceName      = "stripe"
	metadataUserID   = "user_id"
	defaultTolerance = 5 * time.Minute
)

// Provider talks to Stripe. Calls go through a circuit breaker; Stripe
// answers below 500 are returned as errors without tripping it.
type Provider struct {
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
	breaker       *healthcheck.CircuitBreaker
	metrics       *monitoring.Metrics
	logger        *zap.Logger
}

// Option customizes a Provider
type Option func(*providerOptions)

type providerOptions struct {
	backendURL string
	httpClient *http.Client
	tolerance  time.Duration
	retries    int64
}

// WithBackendURL points the client at another API host
func WithBackendURL(url string) Option {
	return func(o *providerOptions) { o.backendURL = url }
}

// WithHTTPClient sets the transport used for API calls
func WithHTTPClient(c *http.Client) Option {
	return func(o *providerOptions) { o.httpClient = c }
}

// WithMaxNetworkRetries sets how often failed requests are retried
func WithMaxNetworkRetries(n int64) Option {
	return func(o *providerOptions) { o.retries = n }
}

// WithWebhookTolerance sets how old a signed webhook may be
func WithWebhookTolerance(d time.Duration) Option {
	return func(o *providerOptions) { o.tolerance = d }
}

// NewProvider creates a Stripe billing provider
func NewProvider(cfg config.BillingConfig, breaker *healthcheck.CircuitBreaker, metrics *monitoring.Metrics, logger *zap.Logger, opts ...Option) *Provider {
	o := providerOptions{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tolerance:  defaultTolerance,
		retries:    1,
	}
	for _, opt := range opts {
		opt(&o)
	}

	backendConfig := &sdk.BackendConfig{
		HTTPClient:        o.httpClient,
		MaxNetworkRetries: sdk.Int64(o.retries),
		LeveledLogger:     &sdk.LeveledLogger{Level: sdk.LevelError},
	}
	if o.backendURL != "" {
		backendConfig.URL = sdk.String(o.backendURL)
	}
	backend := sdk.GetBackendWithConfig(sdk.APIBackend, backendConfig)

	if breaker == nil {
		breaker = healthcheck.NewCircuitBreaker(serviceName, healthcheck.CircuitBreakerConfig{})
	}

	return &Provider{
		api:           client.New(cfg.SecretKey, &sdk.Backends{API: backend, Connect: backend, Uploads: backend}),
		webhookSecret: cfg.WebhookSecret,
		tolerance:     o.tolerance,
		breaker:       breaker,
		metrics:       metrics,
		logger:        logger.Named("stripe"),
	}
}

// CreateCustomer creates a customer tagged with the user id
func (p *Provider) CreateCustomer(ctx context.Context, userID uuid.UUID, email, name string) (string, error) {
	var customer *sdk.Customer
	err := p.call(ctx, "create_customer", func(ctx context.Context) error {
		params := &sdk.CustomerParams{
			Email: sdk.String(email),
			Name:  sdk.String(name),
		}
		params.Context = ctx
		params.AddMetadata(metadataUserID, userID.String())
		var err error
		customer, err = p.api.Customers.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

// CreateCheckoutSession starts a hosted subscription checkout
func (p *Provider) CreateCheckoutSession(ctx context.Context, req outbound.CheckoutRequest) (*outbound.CheckoutSession, error) {
	var session *sdk.CheckoutSession
	err := p.call(ctx, "create_checkout", func(ctx context.Context) error {
		params := &sdk.CheckoutSessionParams{
			Mode:              sdk.String(string(sdk.CheckoutSessionModeSubscription)),
			Customer:          sdk.String(req.CustomerID),
			ClientReferenceID: sdk.String(req.UserID.String()),
			SuccessURL:        sdk.String(req.SuccessURL),
			CancelURL:         sdk.String(req.CancelURL),
			LineItems: []*sdk.CheckoutSessionLineItemParams{
				{Price: sdk.String(req.PriceID), Quantity: sdk.Int64(1)},
			},
			SubscriptionData: &sdk.CheckoutSessionSubscriptionDataParams{
				Metadata: map[string]string{metadataUserID: req.UserID.String()},
			},
		}
		params.Context = ctx
		params.AddMetadata(metadataUserID, req.UserID.String())
		var err error
		session, err = p.api.CheckoutSessions.New(params)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &outbound.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// CreatePortalSession opens the self-service billing portal
func (p *Provider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	var session *sdk.BillingPortalSession
	err := p.call(ctx, "create_portal", func(ctx context.Context) error {
		params := &sdk.BillingPortalSessionParams{
			Customer:  sdk.String(customerID),
			ReturnURL: sdk.String(returnURL),
		}
		params.Context = ctx
		var err error
		session, err = p.api.BillingPortalSessions.New(params)
		return err
	})
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

// GetSubscription fetches the provider's current view of a subscription
func (p *Provider) GetSubscription(ctx context.Context, providerSubscriptionID string) (*outbound.ProviderSubscription, error) {
	var sub *sdk.Subscription
	err := p.call(ctx, "get_subscription", func(ctx context.Context) error {
		params := &sdk.SubscriptionParams{}
		params.Context = ctx
		var err error
		sub, err = p.api.Subscriptions.Get(providerSubscriptionID, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	status, err := mapStatus(string(sub.Status))
	if err != nil {
		return nil, err
	}
	out := &outbound.ProviderSubscription{
		ID:                sub.ID,
		Status:            status,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PriceID = sub.Items.Data[0].Price.ID
	}
	return out, nil
}

// ParseWebhook verifies the Stripe-Signature header and maps the event
func (p *Provider) ParseWebhook(payload []byte, signature string) (*outbound.BillingEvent, error) {
	if p.webhookSecret == "" {
		return nil, errors.New("webhook secret is not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                p.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}
	if event.Data == nil {
		return nil, errors.New("webhook event has no data")
	}
	// Data.Raw holds data.object
	return mapEvent(event.ID, outbound.BillingEventType(event.Type), gjson.ParseBytes(event.Data.Raw))
}

// Breaker exposes the circuit breaker for readiness reporting
func (p *Provider) Breaker() *healthcheck.CircuitBreaker {
	return p.breaker
}

func (p *Provider) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	var rejected error
	err := p.breaker.Execute(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 && apiErr.HTTPStatusCode < http.StatusInternalServerError {
			rejected = err
			return nil
		}
		return err
	})
	if err == nil {
		err = rejected
	}

	outcome := "success"
	switch {
	case errors.Is(err, healthcheck.ErrCircuitOpen):
		outcome = "circuit_open"
	case err != nil:
		outcome = "error"
	}
	p.metrics.RecordExternalCall(serviceName, outcome, time.Since(start))

	if err != nil {
		p.logger.Warn("Stripe call failed", zap.String("operation", op), zap.Error(err))
		return fmt.Errorf("stripe %s: %w", op, err)
	}
	return nil
}

// mapEvent turns the event's data.object into a provider-neutral event
func mapEvent(id string, eventType outbound.BillingEventType, object gjson.Result) (*outbound.BillingEvent, error) {
	event := &outbound.BillingEvent{
		ID:         id,
		Type:       eventType,
		CustomerID: object.Get("customer").String(),
	}

	switch eventType {
	case outbound.BillingCheckoutCompleted:
		event.SubscriptionID = object.Get("subscription").String()
		ref := object.Get("client_reference_id").String()
		if ref == "" {
			ref = object.Get("metadata." + metadataUserID).String()
		}
		if userID, err := uuid.Parse(ref); err == nil {
			event.UserID = &userID
		}

	case outbound.BillingSubscriptionCreated,
		outbound.BillingSubscriptionUpdated,
		outbound.BillingSubscriptionDeleted:
		status, err := mapStatus(object.Get("status").String())
		if err != nil {
			return nil, err
		}
		sub := &outbound.ProviderSubscription{
			ID:                object.Get("id").String(),
			CustomerID:        event.CustomerID,
			Status:            status,
			PriceID:           object.Get("items.data.0.price.id").String(),
			CancelAtPeriodEnd: object.Get("cancel_at_period_end").Bool(),
		}
		if end := object.Get("current_period_end").Int(); end > 0 {
			sub.CurrentPeriodEnd = time.Unix(end, 0).UTC()
		}
		event.Subscription = sub
		event.SubscriptionID = sub.ID
		if userID, err := uuid.Parse(object.Get("metadata." + metadataUserID).String()); err == nil {
			event.UserID = &userID
		}

	case outbound.BillingInvoicePaymentFailed:
		event.SubscriptionID = object.Get("subscription").String()
	}

	return event, nil
}

// mapStatus accepts the states the subscription aggregate knows. Paused
// subscriptions have no access, like unpaid ones.
func mapStatus(raw string) (subscription.Status, error) {
	if raw == string(sdk.SubscriptionStatusPaused) {
		return subscription.StatusUnpaid, nil
	}
	status := subscription.Status(raw)
	if !status.Valid() {
		return "", fmt.Errorf("unknown subscription status %q", raw)
	}
	return status, nil
}
