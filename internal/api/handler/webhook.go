package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/rhaddadin/remitjo/internal/service"
	"go.uber.org/zap"
)

// WebhookHandler receives payment-session events from the gateway.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// HandlePaymentWebhook handles POST /v1/webhooks/payments.
// It verifies the HMAC signature and reconciles the transaction status.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		zap.L().Error("read webhook body failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	signature := r.Header.Get("X-Webhook-Signature")

	outcome, err := h.webhookSvc.HandleEvent(r.Context(), body, signature)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid signature")
		case errors.Is(err, service.ErrMalformedEvent):
			RespondError(w, r, http.StatusBadRequest, "webhook/malformed-event", "Malformed event payload")
		default:
			zap.L().Error("process payment webhook failed", zap.Error(err))
			RespondError(w, r, http.StatusInternalServerError, "webhook/processing-failed", "Failed to process webhook")
		}
		return
	}

	RespondJSON(w, http.StatusOK, outcome)
}
