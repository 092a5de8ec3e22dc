// Package subscription models a user's paid plan and its billing state.
package subscription

import (
	"time"

	"github.com/google/uuid"
	"github.com/nourishlab/nourish/internal/domain/shared"
)

// Status mirrors the payment provider's subscription states
type Status string

const (
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
)

// Valid reports whether the status is known
func (s Status) Valid() bool {
	switch s {
	case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled,
		StatusIncomplete, StatusIncompleteExpired, StatusUnpaid:
		return true
	}
	return false
}

// PastDueGrace is how long a past_due subscription keeps access after its period ends
const PastDueGrace = 3 * 24 * time.Hour

// Subscription is the billing state for one user
type Subscription struct {
	id                     uuid.UUID
	userID                 uuid.UUID
	customerID             string
	providerSubscriptionID string
	plan                   PlanID
	status                 Status
	currentPeriodEnd       time.Time
	cancelAtPeriodEnd      bool
	createdAt              time.Time
	updatedAt              time.Time

	events []shared.DomainEvent
}

// NewSubscription starts tracking billing for a user that has a provider customer
func NewSubscription(userID uuid.UUID, customerID string) (*Subscription, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if customerID == "" {
		return nil, ErrMissingCustomer
	}
	now := time.Now().UTC()
	return &Subscription{
		id:         uuid.New(),
		userID:     userID,
		customerID: customerID,
		plan:       PlanFree,
		status:     StatusIncomplete,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Snapshot carries the persisted state of a subscription
type Snapshot struct {
	ID                     uuid.UUID
	UserID                 uuid.UUID
	CustomerID             string
	ProviderSubscriptionID string
	Plan                   PlanID
	Status                 Status
	CurrentPeriodEnd       time.Time
	CancelAtPeriodEnd      bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// ReconstructSubscription rebuilds a subscription from storage
func ReconstructSubscription(s Snapshot) *Subscription {
	return &Subscription{
		id:                     s.ID,
		userID:                 s.UserID,
		customerID:             s.CustomerID,
		providerSubscriptionID: s.ProviderSubscriptionID,
		plan:                   s.Plan,
		status:                 s.Status,
		currentPeriodEnd:       s.CurrentPeriodEnd,
		cancelAtPeriodEnd:      s.CancelAtPeriodEnd,
		createdAt:              s.CreatedAt,
		updatedAt:              s.UpdatedAt,
	}
}

func (s *Subscription) ID() uuid.UUID                  { return s.id }
func (s *Subscription) UserID() uuid.UUID              { return s.userID }
func (s *Subscription) CustomerID() string             { return s.customerID }
func (s *Subscription) ProviderSubscriptionID() string { return s.providerSubscriptionID }
func (s *Subscription) Plan() PlanID                   { return s.plan }
func (s *Subscription) Status() Status                 { return s.status }
func (s *Subscription) CurrentPeriodEnd() time.Time    { return s.currentPeriodEnd }
func (s *Subscription) CancelAtPeriodEnd() bool        { return s.cancelAtPeriodEnd }
func (s *Subscription) CreatedAt() time.Time           { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time           { return s.updatedAt }

// IsActive reports whether the subscription grants premium access at now
func (s *Subscription) IsActive(now time.Time) bool {
	periodOpen := s.currentPeriodEnd.IsZero() || now.Before(s.currentPeriodEnd)
	switch s.status {
	case StatusActive, StatusTrialing:
		return periodOpen
	case StatusPastDue:
		return s.currentPeriodEnd.IsZero() || now.Before(s.currentPeriodEnd.Add(PastDueGrace))
	}
	return false
}

// AttachProviderSubscription links the provider-side subscription
func (s *Subscription) AttachProviderSubscription(providerSubscriptionID string) {
	if providerSubscriptionID == "" || providerSubscriptionID == s.providerSubscriptionID {
		return
	}
	s.providerSubscriptionID = providerSubscriptionID
	s.updatedAt = time.Now().UTC()
}

// ApplyProviderState copies the provider's view of the subscription
func (s *Subscription) ApplyProviderState(status Status, plan PlanID, periodEnd time.Time, cancelAtPeriodEnd bool) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if plan == "" {
		plan = s.plan
	}

	previous := s.status
	s.status = status
	s.plan = plan
	s.currentPeriodEnd = periodEnd.UTC()
	s.cancelAtPeriodEnd = cancelAtPeriodEnd
	s.updatedAt = time.Now().UTC()

	if previous != status {
		s.events = append(s.events, StatusChangedEvent{
			SubscriptionID: s.id,
			UserID:         s.userID,
			From:           previous,
			To:             status,
			Plan:           plan,
			ChangedAt:      s.updatedAt,
		})
	}
	return nil
}

// Cancel marks the subscription canceled immediately
func (s *Subscription) Cancel() error {
	if s.status == StatusCanceled {
		return ErrAlreadyCanceled
	}
	return s.ApplyProviderState(StatusCanceled, s.plan, time.Now().UTC(), false)
}

// Events returns and clears pending domain events
func (s *Subscription) Events() []shared.DomainEvent {
	events := s.events
	s.events = []shared.DomainEvent{}
	return events
}
