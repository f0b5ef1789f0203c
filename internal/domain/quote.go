package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidRate   = errors.New("invalid exchange rate")
)

// Quote is a computed, non-persisted fee/total breakdown for a prospective
// transfer. Amounts are EUR; Equivalent is the JOD the recipient side sees.
type Quote struct {
	SendAmount decimal.Decimal `json:"send_amount"`
	Fee        decimal.Decimal `json:"fee"`
	Total      decimal.Decimal `json:"total"`
	Equivalent decimal.Decimal `json:"equivalent_amount"`
	Rate       decimal.Decimal `json:"exchange_rate"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ComputeQuote derives the fee/total breakdown for a transfer. It is pure:
// no I/O, deterministic for fixed inputs.
//
//	fee        = round(amount * feeRate, 2)
//	total      = amount + fee
//	equivalent = round(total * rate, 2)
//
// rate is JOD per EUR. Rounding is half away from zero, which for the
// positive amounts allowed here is plain half-up.
func ComputeQuote(amount, feeRate, rate decimal.Decimal) (Quote, error) {
	if amount.Sign() <= 0 {
		return Quote{}, ErrInvalidAmount
	}
	if rate.Sign() <= 0 {
		return Quote{}, ErrInvalidRate
	}

	fee := amount.Mul(feeRate).Round(2)
	total := amount.Add(fee)

	return Quote{
		SendAmount: amount.Round(2),
		Fee:        fee,
		Total:      total,
		Equivalent: total.Mul(rate).Round(2),
		Rate:       rate,
		UpdatedAt:  time.Now().UTC(),
	}, nil
}
