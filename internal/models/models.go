package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a persisted record of a money-transfer attempt. EUR amounts
// are what the card is charged; the JOD columns record the cross-currency
// equivalents at the rate applied when the transaction was created.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	BeneficiaryID *uuid.UUID      `json:"beneficiary_id,omitempty"`
	RecipientName string          `json:"recipient_name"`
	Note          string          `json:"note,omitempty"`
	SendAmountEUR decimal.Decimal `json:"send_amount_eur"`
	FeeEUR        decimal.Decimal `json:"fee_eur"`
	TotalEUR      decimal.Decimal `json:"total_eur"`
	AmountJOD     decimal.Decimal `json:"amount_jod"`
	TotalJOD      decimal.Decimal `json:"total_jod"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	Status        string          `json:"status"`
	SessionID     string          `json:"session_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Beneficiary is a saved recipient profile. Field format checks (phone, IBAN)
// happen at the HTTP boundary, not here.
type Beneficiary struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Country     string    `json:"country"`
	IBAN        string    `json:"iban,omitempty"`
	CliqID      string    `json:"cliq_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransactionStats aggregates a user's transfer history.
type TransactionStats struct {
	TotalTransactions int             `json:"total_transactions"`
	TotalSentEUR      decimal.Decimal `json:"total_sent_eur"`
	TotalSentJOD      decimal.Decimal `json:"total_sent_jod"`
	Completed         int             `json:"completed_transactions"`
	Pending           int             `json:"pending_transactions"`
	Failed            int             `json:"failed_transactions"`
	Expired           int             `json:"expired_transactions"`
}

// WebhookLog records a gateway event that matched a stored transaction.
type WebhookLog struct {
	ID            int64      `json:"id"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	EventType     string     `json:"event_type"`
	Payload       []byte     `json:"payload"`
	CreatedAt     time.Time  `json:"created_at"`
}
