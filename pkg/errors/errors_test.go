package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewUnauthorizedError(""), http.StatusUnauthorized},
		{NewSubscriptionRequiredError("meal plans"), http.StatusPaymentRequired},
		{NewForbiddenError(""), http.StatusForbidden},
		{NewMealPlanNotFoundError("abc"), http.StatusNotFound},
		{NewSubscriptionNotFoundError("abc"), http.StatusNotFound},
		{NewEmailAlreadyExistsError("a@b.c"), http.StatusConflict},
		{NewTooManyRequestsError(time.Second), http.StatusTooManyRequests},
		{NewBillingError("create checkout", fmt.Errorf("boom")), http.StatusBadGateway},
		{NewDatabaseError("find", fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestAs_WrappedChain(t *testing.T) {
	appErr := NewRecipeNotFoundError("r-1")
	wrapped := fmt.Errorf("loading plan: %w", appErr)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, appErr, got)
	assert.True(t, Is(wrapped, CodeRecipeNotFound))
	assert.Equal(t, CodeRecipeNotFound, CodeOf(wrapped))
	assert.Equal(t, CodeInternal, CodeOf(fmt.Errorf("plain")))
	assert.Same(t, appErr, Wrap(wrapped, "ignored"))
}

func TestNewNotFoundError_CapitalizesResource(t *testing.T) {
	assert.Equal(t, "Goal not found", NewNotFoundError("goal").Message)
	assert.Equal(t, "Resource not found", NewNotFoundError("").Message)
}

func TestToErrorResponse(t *testing.T) {
	resp := ToErrorResponse(NewSubscriptionRequiredError("trends"), "req-1")

	assert.Equal(t, CodeSubscriptionRequired, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Equal(t, "trends", resp.Error.Metadata["feature"])
}

func TestToErrorResponse_HidesInternalDetails(t *testing.T) {
	resp := ToErrorResponse(NewDatabaseError("load plan", fmt.Errorf("pq: connection reset")), "")

	assert.Equal(t, CodeDatabaseError, resp.Error.Code)
	assert.Empty(t, resp.Error.Details)
	assert.False(t, resp.Error.Timestamp.IsZero())
}

func TestNewTooManyRequestsError_RoundsUp(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{in: 0, want: time.Second},
		{in: 200 * time.Millisecond, want: time.Second},
		{in: 3 * time.Second, want: 3 * time.Second},
		{in: 3100 * time.Millisecond, want: 4 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewTooManyRequestsError(tt.in).RetryAfter(), tt.in.String())
	}
	assert.Zero(t, NewNotFoundError("plan").RetryAfter())
}

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := NewBillingError("create checkout", fmt.Errorf("card declined"))

	assert.Equal(t, "BILLING_ERROR: Billing provider error (Failed to create checkout): card declined", err.Error())
	assert.Equal(t, http.StatusServiceUnavailable, NewUnavailableError("").StatusCode())
}
