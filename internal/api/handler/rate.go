package handler

import (
	"net/http"

	"github.com/rhaddadin/remitjo/internal/domain"
	"github.com/rhaddadin/remitjo/internal/fx"
	"github.com/shopspring/decimal"
)

// RateHandler serves the current EUR to JOD exchange rate.
type RateHandler struct {
	rates fx.Provider
}

func NewRateHandler(rates fx.Provider) *RateHandler {
	return &RateHandler{rates: rates}
}

// RateResponse is the wire shape for GET /v1/rates. Success is false when the
// rate is the configured fallback rather than a live quote.
type RateResponse struct {
	Success   bool            `json:"success"`
	Base      string          `json:"base"`
	Target    string          `json:"target"`
	Rate      decimal.Decimal `json:"rate"`
	Live      bool            `json:"live"`
	Timestamp int64           `json:"timestamp"`
	Date      string          `json:"date"`
	Error     string          `json:"error,omitempty"`
}

// GetRate handles GET /v1/rates.
func (h *RateHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	res := h.rates.GetRate(r.Context(), domain.CurrencyEUR, domain.CurrencyJOD)

	resp := RateResponse{
		Success:   res.Live,
		Base:      domain.CurrencyEUR,
		Target:    domain.CurrencyJOD,
		Rate:      res.Rate,
		Live:      res.Live,
		Timestamp: res.FetchedAt.Unix(),
		Date:      res.FetchedAt.UTC().Format("2006-01-02"),
	}
	if !res.Live {
		resp.Error = "Using fallback rate"
	}

	RespondJSON(w, http.StatusOK, resp)
}
