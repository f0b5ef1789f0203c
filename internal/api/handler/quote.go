package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rhaddadin/remitjo/internal/service"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuoteHandler prices transfers before checkout.
type QuoteHandler struct {
	quoteSvc *service.QuoteService
}

func NewQuoteHandler(quoteSvc *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteSvc: quoteSvc}
}

// QuoteResponse wraps a quote with a degraded-rate indicator.
type QuoteResponse struct {
	Success bool        `json:"success"`
	Live    bool        `json:"live"`
	Quote   interface{} `json:"quote"`
}

// GetQuote handles GET /v1/quote?amount=10.00.
func (h *QuoteHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("amount"))
	if raw == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-amount", "amount query parameter is required")
		return
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "amount must be a decimal number")
		return
	}

	quote, live, err := h.quoteSvc.Quote(r.Context(), amount)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			respondValidationError(w, r, ve)
			return
		}
		zap.L().Error("quote failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "quote/failed", "Failed to compute quote")
		return
	}

	RespondJSON(w, http.StatusOK, QuoteResponse{Success: true, Live: live, Quote: quote})
}
