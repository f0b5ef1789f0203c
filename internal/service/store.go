package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/models"
)

// TransactionStore is the persistence contract the services consume. The
// postgres repository and the in-memory store both satisfy it.
//
// TransitionStatus must be an atomic compare-and-set from pending: it is the
// only write path for transaction status in the whole system.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error)
	GetTransactionBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, status string, limit int) ([]models.Transaction, error)
	TransactionStats(ctx context.Context, userID uuid.UUID) (*models.TransactionStats, error)
	TransitionStatus(ctx context.Context, sessionID, next string) (bool, error)
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// WebhookLogStore records processed gateway events.
type WebhookLogStore interface {
	InsertWebhookLog(ctx context.Context, transactionID *uuid.UUID, eventType string, payload []byte) error
}

// BeneficiaryStore persists saved recipient profiles.
type BeneficiaryStore interface {
	CreateBeneficiary(ctx context.Context, b *models.Beneficiary) error
	ListBeneficiaries(ctx context.Context, userID uuid.UUID, search string) ([]models.Beneficiary, error)
	GetBeneficiary(ctx context.Context, id, userID uuid.UUID) (*models.Beneficiary, error)
	UpdateBeneficiary(ctx context.Context, b *models.Beneficiary) error
	DeleteBeneficiary(ctx context.Context, id, userID uuid.UUID) error
}

// ValidationError reports a bad or missing input field. It is returned
// synchronously and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
