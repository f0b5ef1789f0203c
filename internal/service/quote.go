package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rhaddadin/remitjo/internal/domain"
	"github.com/rhaddadin/remitjo/internal/fx"
	"github.com/shopspring/decimal"
)

// QuoteService computes fee/total breakdowns for prospective transfers and
// enforces the transfer amount bounds policy. The bounds are policy: changing
// them is a config edit, not a code change.
type QuoteService struct {
	rates   fx.Provider
	feeRate decimal.Decimal
	minEUR  decimal.Decimal
	maxEUR  decimal.Decimal
}

func NewQuoteService(rates fx.Provider, feeRate, minAmount, maxAmount decimal.Decimal) *QuoteService {
	return &QuoteService{
		rates:   rates,
		feeRate: feeRate,
		minEUR:  minAmount,
		maxEUR:  maxAmount,
	}
}

// ValidateAmount checks the transfer bounds. Violations are reported, never
// clamped.
func (s *QuoteService) ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return invalidField("amount", "amount must be positive")
	}
	if amount.LessThan(s.minEUR) {
		return invalidField("amount", fmt.Sprintf("minimum amount is %s EUR", s.minEUR))
	}
	if amount.GreaterThan(s.maxEUR) {
		return invalidField("amount", fmt.Sprintf("maximum amount is %s EUR", s.maxEUR))
	}
	return nil
}

// Quote validates the amount, fetches the current EUR→JOD rate, and returns
// the breakdown. live is false when the fallback rate was used; the quote is
// still served so the user sees an estimate with a staleness warning.
func (s *QuoteService) Quote(ctx context.Context, amount decimal.Decimal) (*domain.Quote, bool, error) {
	if err := s.ValidateAmount(amount); err != nil {
		return nil, false, err
	}

	res := s.rates.GetRate(ctx, domain.CurrencyEUR, domain.CurrencyJOD)
	quote, err := domain.ComputeQuote(amount, s.feeRate, res.Rate)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRate) {
			return nil, false, fmt.Errorf("exchange rate unavailable: %w", err)
		}
		return nil, false, err
	}
	return &quote, res.Live, nil
}

// FeeRate exposes the configured fee policy.
func (s *QuoteService) FeeRate() decimal.Decimal {
	return s.feeRate
}
