package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/gateway"
	"github.com/rhaddadin/remitjo/internal/models"
	"github.com/rhaddadin/remitjo/internal/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CheckoutService creates hosted payment sessions and the matching pending
// transaction records. A transaction is only persisted after the session
// exists, so every stored row carries its external session id from creation.
type CheckoutService struct {
	store      TransactionStore
	gateway    gateway.Gateway
	quotes     *QuoteService
	successURL string
	cancelURL  string
}

func NewCheckoutService(store TransactionStore, gw gateway.Gateway, quotes *QuoteService, successURL, cancelURL string) *CheckoutService {
	return &CheckoutService{
		store:      store,
		gateway:    gw,
		quotes:     quotes,
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

// CheckoutInput is a validated request to start a transfer.
type CheckoutInput struct {
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Recipient     string
	Note          string
	BeneficiaryID *uuid.UUID
}

// CheckoutResult points the caller at the hosted payment page.
type CheckoutResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	SessionID     string          `json:"session_id"`
	SessionURL    string          `json:"session_url"`
	Fee           decimal.Decimal `json:"fee"`
	Total         decimal.Decimal `json:"total"`
}

// Create validates the input, quotes the transfer, opens a gateway session,
// and stores the pending transaction. Gateway failures surface as
// gateway.ErrUnavailable so the handler can return a retryable status; there
// is no fallback for session creation.
func (s *CheckoutService) Create(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	if in.UserID == uuid.Nil {
		return nil, invalidField("user_id", "user_id is required")
	}
	in.Recipient = strings.TrimSpace(in.Recipient)
	if in.Recipient == "" {
		return nil, invalidField("recipient", "recipient is required")
	}
	if in.Amount.IsZero() {
		return nil, invalidField("amount", "amount is required")
	}

	quote, live, err := s.quotes.Quote(ctx, in.Amount)
	if err != nil {
		return nil, err
	}
	if !live {
		zap.L().Warn("creating checkout with fallback exchange rate",
			zap.String("rate", quote.Rate.String()))
	}

	session, err := s.gateway.CreateSession(ctx, gateway.CreateSessionParams{
		Amount:      quote.Total,
		Currency:    "eur",
		Name:        fmt.Sprintf("Transfer to %s", in.Recipient),
		Description: s.description(in, quote.Equivalent),
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
		Metadata: map[string]string{
			"user_id":        in.UserID.String(),
			"recipient":      in.Recipient,
			"send_amount":    quote.SendAmount.String(),
			"fee":            quote.Fee.String(),
			"total":          quote.Total.String(),
			"amount_jod":     quote.Equivalent.String(),
			"exchange_rate":  quote.Rate.String(),
			"beneficiary_id": beneficiaryMeta(in.BeneficiaryID),
		},
	})
	if err != nil {
		observability.IncrementCheckout("gateway_error")
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	tx := &models.Transaction{
		UserID:        in.UserID,
		BeneficiaryID: in.BeneficiaryID,
		RecipientName: in.Recipient,
		Note:          in.Note,
		SendAmountEUR: quote.SendAmount,
		FeeEUR:        quote.Fee,
		TotalEUR:      quote.Total,
		AmountJOD:     quote.SendAmount.Mul(quote.Rate).Round(2),
		TotalJOD:      quote.Equivalent,
		ExchangeRate:  quote.Rate,
		SessionID:     session.ID,
	}
	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		observability.IncrementCheckout("store_error")
		return nil, fmt.Errorf("record transaction: %w", err)
	}

	observability.IncrementCheckout("created")
	zap.L().Info("checkout session created",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("session_id", session.ID),
		zap.String("total_eur", quote.Total.String()),
	)

	return &CheckoutResult{
		TransactionID: tx.ID,
		SessionID:     session.ID,
		SessionURL:    session.URL,
		Fee:           quote.Fee,
		Total:         quote.Total,
	}, nil
}

func (s *CheckoutService) description(in CheckoutInput, amountJOD decimal.Decimal) string {
	if in.Note != "" {
		return in.Note
	}
	return fmt.Sprintf("Transfer €%s (%s JOD) to %s", in.Amount.Round(2), amountJOD, in.Recipient)
}

func beneficiaryMeta(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
