package subscription

import "errors"

var (
	ErrMissingUser          = errors.New("subscription requires a user")
	ErrMissingCustomer      = errors.New("subscription requires a billing customer")
	ErrInvalidStatus        = errors.New("unknown subscription status")
	ErrAlreadyCanceled      = errors.New("subscription is already canceled")
	ErrUnknownPlan          = errors.New("unknown plan")
	ErrPlanNotPurchasable   = errors.New("plan cannot be purchased")
	ErrSubscriptionNotFound = errors.New("subscription not found")
)
