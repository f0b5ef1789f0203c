package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/domain"
	"github.com/rhaddadin/remitjo/internal/fx"
	"github.com/rhaddadin/remitjo/internal/gateway"
	"github.com/rhaddadin/remitjo/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingGateway struct{}

func (failingGateway) CreateSession(ctx context.Context, params gateway.CreateSessionParams) (*gateway.Session, error) {
	return nil, gateway.ErrUnavailable
}

func newCheckoutService(store TransactionStore, gw gateway.Gateway) *CheckoutService {
	quotes := NewQuoteService(
		fx.Static{Rate: decimal.RequireFromString("0.85"), Live: true},
		decimal.RequireFromString("0.04"),
		decimal.RequireFromString("5"),
		decimal.RequireFromString("100"),
	)
	return NewCheckoutService(store, gw, quotes, "https://app.example.com/success", "https://app.example.com/send")
}

func TestCheckoutCreatesPendingTransaction(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newCheckoutService(store, gateway.NewMockGateway())
	userID := uuid.New()

	res, err := svc.Create(context.Background(), CheckoutInput{
		UserID:    userID,
		Amount:    decimal.RequireFromString("10.00"),
		Recipient: "Layla",
		Note:      "rent",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.SessionID)
	require.NotEmpty(t, res.SessionURL)
	assert.True(t, res.Fee.Equal(decimal.RequireFromString("0.40")), "fee = %s", res.Fee)
	assert.True(t, res.Total.Equal(decimal.RequireFromString("10.40")), "total = %s", res.Total)

	tx, err := store.GetTransactionBySessionID(context.Background(), res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.Equal(t, userID, tx.UserID)
	assert.Equal(t, "Layla", tx.RecipientName)
	assert.Equal(t, "rent", tx.Note)
	assert.True(t, tx.TotalEUR.Equal(decimal.RequireFromString("10.40")))
	assert.True(t, tx.TotalJOD.Equal(decimal.RequireFromString("8.84")), "total_jod = %s", tx.TotalJOD)
	assert.True(t, tx.ExchangeRate.Equal(decimal.RequireFromString("0.85")))
	assert.Equal(t, res.SessionID, tx.SessionID, "session id must be set at creation")
}

func TestCheckoutValidation(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newCheckoutService(store, gateway.NewMockGateway())

	tests := []struct {
		name      string
		input     CheckoutInput
		wantField string
	}{
		{name: "missing user", input: CheckoutInput{Amount: decimal.RequireFromString("10"), Recipient: "Layla"}, wantField: "user_id"},
		{name: "missing recipient", input: CheckoutInput{UserID: uuid.New(), Amount: decimal.RequireFromString("10")}, wantField: "recipient"},
		{name: "missing amount", input: CheckoutInput{UserID: uuid.New(), Recipient: "Layla"}, wantField: "amount"},
		{name: "below minimum", input: CheckoutInput{UserID: uuid.New(), Recipient: "Layla", Amount: decimal.RequireFromString("4.99")}, wantField: "amount"},
		{name: "above maximum", input: CheckoutInput{UserID: uuid.New(), Recipient: "Layla", Amount: decimal.RequireFromString("100.01")}, wantField: "amount"},
		{name: "negative amount", input: CheckoutInput{UserID: uuid.New(), Recipient: "Layla", Amount: decimal.RequireFromString("-10")}, wantField: "amount"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantField, verr.Field)
		})
	}

	txs, err := store.ListTransactions(context.Background(), uuid.New(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, txs, "validation failures must not persist anything")
}

func TestCheckoutGatewayFailure(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := newCheckoutService(store, failingGateway{})
	userID := uuid.New()

	_, err := svc.Create(context.Background(), CheckoutInput{
		UserID:    userID,
		Amount:    decimal.RequireFromString("10.00"),
		Recipient: "Layla",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gateway.ErrUnavailable))

	txs, err := store.ListTransactions(context.Background(), userID, "", 0)
	require.NoError(t, err)
	assert.Empty(t, txs, "no transaction without a session")
}
