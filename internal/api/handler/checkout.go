package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/gateway"
	"github.com/rhaddadin/remitjo/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutHandler starts hosted payment sessions for transfers.
type CheckoutHandler struct {
	checkoutSvc *service.CheckoutService
}

func NewCheckoutHandler(checkoutSvc *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc}
}

// CreateCheckoutRequest represents the request body for starting a transfer.
type CreateCheckoutRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Recipient     string          `json:"recipient"`
	Note          string          `json:"note"`
	BeneficiaryID string          `json:"beneficiary_id,omitempty"`
}

// CreateCheckout handles POST /v1/checkout.
// On success it returns the session URL the client redirects to.
func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	in := service.CheckoutInput{
		UserID:    userID,
		Amount:    req.Amount,
		Recipient: req.Recipient,
		Note:      strings.TrimSpace(req.Note),
	}
	if req.BeneficiaryID != "" {
		bid, err := uuid.Parse(req.BeneficiaryID)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-beneficiary-id", "Invalid beneficiary_id")
			return
		}
		in.BeneficiaryID = &bid
	}

	result, err := h.checkoutSvc.Create(r.Context(), in)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			respondValidationError(w, r, ve)
		case errors.Is(err, gateway.ErrUnavailable):
			RespondError(w, r, http.StatusBadGateway, "checkout/gateway-unavailable", "Payment provider is unavailable, try again")
		default:
			if status, ptype, msg, ok := mapDBError(err); ok {
				RespondError(w, r, status, ptype, msg)
				return
			}
			zap.L().Error("create checkout failed", zap.Error(err))
			RespondError(w, r, http.StatusInternalServerError, "checkout/create-failed", "Failed to create checkout session")
		}
		return
	}

	RespondJSON(w, http.StatusCreated, result)
}
