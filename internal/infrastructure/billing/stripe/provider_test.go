package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap/zaptest"

	"github.com/nourishlab/nourish/internal/domain/subscription"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/healthcheck"
)

const testWebhookSecret = "whsec_test"

func newTestProvider(t *testing.T, handler http.Handler, breaker *healthcheck.CircuitBreaker) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.BillingConfig{Provider: "stripe", SecretKey: "sk_test_123", WebhookSecret: testWebhookSecret}
	return NewProvider(cfg, breaker, nil, zaptest.NewLogger(t),
		WithBackendURL(srv.URL),
		WithMaxNetworkRetries(0),
	)
}

func TestProvider_CreateCustomer(t *testing.T) {
	userID := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/customers", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "ada@example.com", r.PostForm.Get("email"))
		assert.Equal(t, userID.String(), r.PostForm.Get("metadata[user_id]"))
		fmt.Fprint(w, `{"id":"cus_123","object":"customer"}`)
	})
	p := newTestProvider(t, mux, nil)

	id, err := p.CreateCustomer(context.Background(), userID, "ada@example.com", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)
}

func TestProvider_CreateCheckoutSession(t *testing.T) {
	userID := uuid.New()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/checkout/sessions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "price_monthly", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, userID.String(), r.PostForm.Get("client_reference_id"))
		fmt.Fprint(w, `{"id":"cs_1","object":"checkout.session","url":"https://checkout.example/cs_1"}`)
	})
	p := newTestProvider(t, mux, nil)

	session, err := p.CreateCheckoutSession(context.Background(), outbound.CheckoutRequest{
		UserID:     userID,
		CustomerID: "cus_123",
		PriceID:    "price_monthly",
		SuccessURL: "http://localhost/ok",
		CancelURL:  "http://localhost/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
	assert.Equal(t, "https://checkout.example/cs_1", session.URL)
}

func TestProvider_GetSubscription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/subscriptions/sub_123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "sub_123",
			"object": "subscription",
			"customer": "cus_123",
			"status": "past_due",
			"current_period_end": 1767225600,
			"cancel_at_period_end": true,
			"items": {"object": "list", "data": [{"id": "si_1", "object": "subscription_item", "price": {"id": "price_yearly", "object": "price"}}]}
		}`)
	})
	p := newTestProvider(t, mux, nil)

	sub, err := p.GetSubscription(context.Background(), "sub_123")
	require.NoError(t, err)
	assert.Equal(t, &outbound.ProviderSubscription{
		ID:                "sub_123",
		CustomerID:        "cus_123",
		Status:            subscription.StatusPastDue,
		PriceID:           "price_yearly",
		CurrentPeriodEnd:  time.Unix(1767225600, 0).UTC(),
		CancelAtPeriodEnd: true,
	}, sub)
}

func TestProvider_ClientErrorsDoNotTripBreaker(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such subscription"}}`)
	})
	breaker := healthcheck.NewCircuitBreaker("stripe", healthcheck.CircuitBreakerConfig{FailureThreshold: 2})
	p := newTestProvider(t, handler, breaker)

	for i := 0; i < 3; i++ {
		_, err := p.GetSubscription(context.Background(), "sub_missing")
		require.Error(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, healthcheck.StateClosed, breaker.State())
}

func TestProvider_ServerErrorsOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"type":"api_error","message":"boom"}}`)
	})
	breaker := healthcheck.NewCircuitBreaker("stripe", healthcheck.CircuitBreakerConfig{FailureThreshold: 2, Timeout: time.Hour})
	p := newTestProvider(t, handler, breaker)

	for i := 0; i < 2; i++ {
		_, err := p.CreatePortalSession(context.Background(), "cus_123", "http://localhost/settings")
		require.Error(t, err)
	}
	_, err := p.CreatePortalSession(context.Background(), "cus_123", "http://localhost/settings")
	assert.ErrorIs(t, err, healthcheck.ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func sign(payload string) (string, []byte) {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	})
	return signed.Header, signed.Payload
}

func TestProvider_ParseWebhook(t *testing.T) {
	p := newTestProvider(t, http.NotFoundHandler(), nil)
	userID := uuid.New()

	t.Run("checkout completed", func(t *testing.T) {
		header, payload := sign(fmt.Sprintf(`{
			"id": "evt_1", "object": "event", "type": "checkout.session.completed",
			"data": {"object": {"id": "cs_1", "customer": "cus_123", "subscription": "sub_123", "client_reference_id": %q}}
		}`, userID))

		event, err := p.ParseWebhook(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, outbound.BillingCheckoutCompleted, event.Type)
		assert.Equal(t, "cus_123", event.CustomerID)
		assert.Equal(t, "sub_123", event.SubscriptionID)
		require.NotNil(t, event.UserID)
		assert.Equal(t, userID, *event.UserID)
		assert.Nil(t, event.Subscription)
	})

	t.Run("subscription updated", func(t *testing.T) {
		header, payload := sign(`{
			"id": "evt_2", "object": "event", "type": "customer.subscription.updated",
			"data": {"object": {
				"id": "sub_123", "customer": "cus_123", "status": "active",
				"current_period_end": 1767225600, "cancel_at_period_end": false,
				"items": {"data": [{"price": {"id": "price_monthly"}}]}
			}}
		}`)

		event, err := p.ParseWebhook(payload, header)
		require.NoError(t, err)
		require.NotNil(t, event.Subscription)
		assert.Equal(t, subscription.StatusActive, event.Subscription.Status)
		assert.Equal(t, "price_monthly", event.Subscription.PriceID)
		assert.Equal(t, time.Unix(1767225600, 0).UTC(), event.Subscription.CurrentPeriodEnd)
		assert.Equal(t, "sub_123", event.SubscriptionID)
	})

	t.Run("payment failed", func(t *testing.T) {
		header, payload := sign(`{
			"id": "evt_3", "object": "event", "type": "invoice.payment_failed",
			"data": {"object": {"id": "in_1", "customer": "cus_123", "subscription": "sub_123"}}
		}`)

		event, err := p.ParseWebhook(payload, header)
		require.NoError(t, err)
		assert.Equal(t, "sub_123", event.SubscriptionID)
		assert.Nil(t, event.UserID)
	})

	t.Run("bad signature", func(t *testing.T) {
		_, payload := sign(`{"id": "evt_4", "object": "event", "type": "invoice.payment_failed", "data": {"object": {}}}`)
		_, err := p.ParseWebhook(payload, "t=1,v1=deadbeef")
		assert.Error(t, err)
	})

	t.Run("unknown status", func(t *testing.T) {
		header, payload := sign(`{
			"id": "evt_5", "object": "event", "type": "customer.subscription.created",
			"data": {"object": {"id": "sub_9", "customer": "cus_9", "status": "mystery"}}
		}`)
		_, err := p.ParseWebhook(payload, header)
		assert.Error(t, err)
	})
}

func TestMapStatus(t *testing.T) {
	status, err := mapStatus("paused")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusUnpaid, status)

	status, err = mapStatus("trialing")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusTrialing, status)

	_, err = mapStatus("")
	assert.Error(t, err)
}
