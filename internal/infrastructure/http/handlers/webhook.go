package handlers

import (
	"io"
	"net/http"

	"github.com/nourishlab/nourish/internal/infrastructure/http/middleware"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/ports/inbound"
	"github.com/nourishlab/nourish/pkg/errors"
	"go.uber.org/zap"
)

const (
	// WebhookPath receives billing provider events
	WebhookPath     = "/api/webhooks/billing"
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 512 << 10
)

// WebhookHandler verifies and applies billing provider events
type WebhookHandler struct {
	subscriptions inbound.SubscriptionService
	metrics       *monitoring.Metrics
	logger        *zap.Logger
}

// NewWebhookHandler creates the billing webhook endpoint
func NewWebhookHandler(subscriptions inbound.SubscriptionService, metrics *monitoring.Metrics, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		subscriptions: subscriptions,
		metrics:       metrics,
		logger:        logger.Named("webhook"),
	}
}

// ServeHTTP handles POST /api/webhooks/billing. Non-2xx responses make the
// provider retry, so only signature and payload problems are 4xx.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil || len(payload) > maxWebhookBody {
		h.metrics.RecordWebhook("rejected")
		middleware.WriteError(w, r, errors.NewBadRequestError("Unreadable webhook payload"))
		return
	}

	err = h.subscriptions.HandleWebhook(r.Context(), payload, r.Header.Get(signatureHeader))
	if err != nil {
		appErr := errors.Wrap(err, "Failed to process webhook")
		outcome := "failed"
		if appErr.StatusCode() < http.StatusInternalServerError {
			outcome = "rejected"
		}
		h.metrics.RecordWebhook(outcome)
		h.logger.Warn("Webhook not applied",
			zap.String("outcome", outcome),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
		middleware.WriteError(w, r, appErr)
		return
	}

	h.metrics.RecordWebhook("applied")
	middleware.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
