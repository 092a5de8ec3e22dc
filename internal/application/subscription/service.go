// Package subscription provides the application layer for plans and billing
package subscription

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/subscription"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
)

// StatusNone is reported for users that never started a checkout
const StatusNone = "none"

// RedirectURLs are where the provider sends the browser back to
type RedirectURLs struct {
	Success      string
	Cancel       string
	PortalReturn string
}

// SubscriptionService implements the billing use cases
type SubscriptionService struct {
	repo     outbound.SubscriptionRepository
	userRepo outbound.UserRepository
	provider outbound.BillingProvider
	catalog  *subscription.Catalog
	urls     RedirectURLs
	events   outbound.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewSubscriptionService creates a new subscription service. provider may be
// nil when billing is disabled; checkout, portal and sync then fail as unavailable.
func NewSubscriptionService(
	repo outbound.SubscriptionRepository,
	userRepo outbound.UserRepository,
	provider outbound.BillingProvider,
	catalog *subscription.Catalog,
	urls RedirectURLs,
	events outbound.EventPublisher,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		repo:     repo,
		userRepo: userRepo,
		provider: provider,
		catalog:  catalog,
		urls:     urls,
		events:   events,
		logger:   logger.Named("subscription-service"),
		now:      time.Now,
	}
}

var _ inbound.SubscriptionService = (*SubscriptionService)(nil)

// Plans lists the catalog
func (s *SubscriptionService) Plans(ctx context.Context) []inbound.PlanDTO {
	plans := s.catalog.Plans()
	out := make([]inbound.PlanDTO, 0, len(plans))
	for _, p := range plans {
		out = append(out, inbound.PlanDTO{
			ID:          string(p.ID),
			Name:        p.Name,
			PriceCents:  p.PriceCents,
			Interval:    p.Interval,
			Features:    p.Features,
			Purchasable: p.Purchasable && s.provider != nil,
		})
	}
	return out
}

// Status returns the caller's billing state
func (s *SubscriptionService) Status(ctx context.Context, userID uuid.UUID) (*inbound.SubscriptionStatusDTO, error) {
	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("find subscription", err)
	}
	return s.toStatus(sub), nil
}

// HasActiveSubscription evaluates the active rule in the database
func (s *SubscriptionService) HasActiveSubscription(ctx context.Context, userID uuid.UUID) (bool, error) {
	active, err := s.repo.HasActive(ctx, userID, s.now().UTC())
	if err != nil {
		return false, errors.NewDatabaseError("check subscription", err)
	}
	return active, nil
}

// CreateCheckout starts a hosted checkout, creating the provider customer on first use
func (s *SubscriptionService) CreateCheckout(ctx context.Context, userID uuid.UUID, cmd inbound.CheckoutCommand) (*inbound.CheckoutDTO, error) {
	if err := s.requireProvider(); err != nil {
		return nil, err
	}

	plan, err := s.catalog.Get(subscription.PlanID(cmd.PlanID))
	if err != nil {
		return nil, domainError(err)
	}
	if !plan.Purchasable {
		return nil, domainError(subscription.ErrPlanNotPurchasable)
	}

	sub, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub.IsActive(s.now()) {
		return nil, errors.NewConflictError("An active subscription already exists; use the billing portal to change plans")
	}

	session, err := s.provider.CreateCheckoutSession(ctx, outbound.CheckoutRequest{
		UserID:     userID,
		CustomerID: sub.CustomerID(),
		PriceID:    plan.PriceID,
		SuccessURL: s.urls.Success,
		CancelURL:  s.urls.Cancel,
	})
	if err != nil {
		return nil, errors.NewBillingError("create checkout session", err)
	}

	s.logger.Info("Checkout session created",
		zap.String("user_id", userID.String()),
		zap.String("plan", string(plan.ID)),
		zap.String("session_id", session.ID),
	)
	return &inbound.CheckoutDTO{SessionID: session.ID, URL: session.URL}, nil
}

// CreatePortal opens the provider's billing portal for an existing customer
func (s *SubscriptionService) CreatePortal(ctx context.Context, userID uuid.UUID) (*inbound.PortalDTO, error) {
	if err := s.requireProvider(); err != nil {
		return nil, err
	}

	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("find subscription", err)
	}
	if sub == nil || sub.CustomerID() == "" {
		return nil, errors.NewConflictError("No billing account exists yet; start a checkout first")
	}

	url, err := s.provider.CreatePortalSession(ctx, sub.CustomerID(), s.urls.PortalReturn)
	if err != nil {
		return nil, errors.NewBillingError("create portal session", err)
	}
	return &inbound.PortalDTO{URL: url}, nil
}

// HandleWebhook verifies and applies a provider event
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := s.requireProvider(); err != nil {
		return err
	}

	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		s.logger.Warn("Rejected billing webhook", zap.Error(err))
		return errors.NewBadRequestError("Invalid webhook signature or payload").WithCause(err)
	}

	logger := s.logger.With(
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("customer_id", event.CustomerID),
	)

	switch event.Type {
	case outbound.BillingCheckoutCompleted,
		outbound.BillingSubscriptionCreated,
		outbound.BillingSubscriptionUpdated,
		outbound.BillingSubscriptionDeleted,
		outbound.BillingInvoicePaymentFailed:
	default:
		logger.Debug("Ignoring billing event")
		return nil
	}

	sub, err := s.subscriptionForEvent(ctx, event)
	if err != nil {
		return err
	}
	if sub == nil {
		logger.Warn("Billing event for unknown customer")
		return nil
	}

	state := event.Subscription
	if state == nil {
		subscriptionID := event.SubscriptionID
		if subscriptionID == "" {
			subscriptionID = sub.ProviderSubscriptionID()
		}
		if subscriptionID != "" {
			state, err = s.provider.GetSubscription(ctx, subscriptionID)
			if err != nil {
				return errors.NewBillingError("fetch subscription", err)
			}
		}
	}

	switch {
	case state != nil:
		if err := s.apply(sub, state); err != nil {
			return err
		}
	case event.Type == outbound.BillingInvoicePaymentFailed:
		if err := sub.ApplyProviderState(subscription.StatusPastDue, sub.Plan(), sub.CurrentPeriodEnd(), sub.CancelAtPeriodEnd()); err != nil {
			return domainError(err)
		}
	case event.Type == outbound.BillingSubscriptionDeleted:
		if err := sub.Cancel(); err != nil && !stderrors.Is(err, subscription.ErrAlreadyCanceled) {
			return domainError(err)
		}
	}

	if err := s.repo.Save(ctx, sub); err != nil {
		return errors.NewDatabaseError("save subscription", err)
	}
	s.events.Publish(ctx, sub.Events()...)

	logger.Info("Billing event applied",
		zap.String("user_id", sub.UserID().String()),
		zap.String("status", string(sub.Status())),
		zap.String("plan", string(sub.Plan())),
	)
	return nil
}

// Sync reconciles one user's subscription with the provider
func (s *SubscriptionService) Sync(ctx context.Context, userID uuid.UUID) (*inbound.SubscriptionStatusDTO, error) {
	if err := s.requireProvider(); err != nil {
		return nil, err
	}

	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("find subscription", err)
	}
	if sub == nil {
		return nil, errors.NewSubscriptionNotFoundError(userID.String())
	}
	if sub.ProviderSubscriptionID() == "" {
		return s.toStatus(sub), nil
	}

	if _, err := s.reconcile(ctx, sub); err != nil {
		return nil, err
	}
	return s.toStatus(sub), nil
}

// SyncAll reconciles every subscription linked to the provider. Failures are
// counted and logged; the run continues.
func (s *SubscriptionService) SyncAll(ctx context.Context) (*inbound.SyncReport, error) {
	if err := s.requireProvider(); err != nil {
		return nil, err
	}

	subs, err := s.repo.ListWithProvider(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("list subscriptions", err)
	}

	report := &inbound.SyncReport{}
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		changed, err := s.reconcile(ctx, sub)
		if err != nil {
			report.Failed++
			s.logger.Warn("Subscription reconciliation failed",
				zap.String("user_id", sub.UserID().String()),
				zap.Error(err),
			)
			continue
		}
		if changed {
			report.Updated++
		}
	}

	s.logger.Info("Subscription reconciliation finished",
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.Updated),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// Helper methods

func (s *SubscriptionService) requireProvider() error {
	if s.provider == nil {
		return errors.NewUnavailableError("Billing is not configured")
	}
	return nil
}

// ensureCustomer returns the user's subscription record, creating the provider customer when missing
func (s *SubscriptionService) ensureCustomer(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error) {
	sub, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("find subscription", err)
	}
	if sub != nil {
		return sub, nil
	}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("find user", err)
	}
	if u == nil {
		return nil, errors.NewUserNotFoundError(userID.String())
	}

	customerID, err := s.provider.CreateCustomer(ctx, userID, u.Email(), u.Name())
	if err != nil {
		return nil, errors.NewBillingError("create customer", err)
	}
	sub, err = subscription.NewSubscription(userID, customerID)
	if err != nil {
		return nil, domainError(err)
	}
	if err := s.repo.Save(ctx, sub); err != nil {
		return nil, errors.NewDatabaseError("save subscription", err)
	}

	s.logger.Info("Billing customer created",
		zap.String("user_id", userID.String()),
		zap.String("customer_id", customerID),
	)
	return sub, nil
}

func (s *SubscriptionService) subscriptionForEvent(ctx context.Context, event *outbound.BillingEvent) (*subscription.Subscription, error) {
	if event.CustomerID != "" {
		sub, err := s.repo.FindByCustomerID(ctx, event.CustomerID)
		if err != nil {
			return nil, errors.NewDatabaseError("find subscription", err)
		}
		if sub != nil {
			return sub, nil
		}
	}
	if event.UserID == nil || event.CustomerID == "" {
		return nil, nil
	}

	// Checkout can complete before the customer was stored locally
	sub, err := s.repo.FindByUserID(ctx, *event.UserID)
	if err != nil {
		return nil, errors.NewDatabaseError("find subscription", err)
	}
	if sub != nil {
		return sub, nil
	}
	sub, err = subscription.NewSubscription(*event.UserID, event.CustomerID)
	if err != nil {
		return nil, domainError(err)
	}
	return sub, nil
}

// reconcile copies the provider state onto sub and saves it when anything moved
func (s *SubscriptionService) reconcile(ctx context.Context, sub *subscription.Subscription) (bool, error) {
	state, err := s.provider.GetSubscription(ctx, sub.ProviderSubscriptionID())
	if err != nil {
		return false, errors.NewBillingError("fetch subscription", err)
	}

	before := sub.Status()
	beforePlan := sub.Plan()
	beforeEnd := sub.CurrentPeriodEnd()
	beforeCancel := sub.CancelAtPeriodEnd()
	if err := s.apply(sub, state); err != nil {
		return false, err
	}
	changed := before != sub.Status() ||
		beforePlan != sub.Plan() ||
		!beforeEnd.Equal(sub.CurrentPeriodEnd()) ||
		beforeCancel != sub.CancelAtPeriodEnd()
	if !changed {
		return false, nil
	}

	if err := s.repo.Save(ctx, sub); err != nil {
		return false, errors.NewDatabaseError("save subscription", err)
	}
	s.events.Publish(ctx, sub.Events()...)
	return true, nil
}

func (s *SubscriptionService) apply(sub *subscription.Subscription, state *outbound.ProviderSubscription) error {
	plan := sub.Plan()
	if p, ok := s.catalog.ByPriceID(state.PriceID); ok {
		plan = p.ID
	}
	sub.AttachProviderSubscription(state.ID)
	if err := sub.ApplyProviderState(state.Status, plan, state.CurrentPeriodEnd, state.CancelAtPeriodEnd); err != nil {
		return domainError(err)
	}
	return nil
}

func (s *SubscriptionService) toStatus(sub *subscription.Subscription) *inbound.SubscriptionStatusDTO {
	if sub == nil {
		return &inbound.SubscriptionStatusDTO{Plan: string(subscription.PlanFree), Status: StatusNone}
	}
	dto := &inbound.SubscriptionStatusDTO{
		Plan:              string(sub.Plan()),
		Status:            string(sub.Status()),
		Active:            sub.IsActive(s.now()),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd(),
		HasBillingAccount: sub.CustomerID() != "",
	}
	if end := sub.CurrentPeriodEnd(); !end.IsZero() {
		dto.CurrentPeriodEnd = &end
	}
	if !dto.Active && dto.Plan != string(subscription.PlanFree) && sub.Status() == subscription.StatusCanceled {
		dto.Plan = string(subscription.PlanFree)
	}
	return dto
}

// domainError translates subscription domain errors into application errors
func domainError(err error) error {
	switch {
	case stderrors.Is(err, subscription.ErrSubscriptionNotFound):
		return errors.NewNotFoundError("subscription")
	case stderrors.Is(err, subscription.ErrPlanNotPurchasable), stderrors.Is(err, subscription.ErrAlreadyCanceled):
		return errors.NewConflictError(err.Error())
	default:
		return errors.NewValidationError(err.Error()).WithCause(err)
	}
}
