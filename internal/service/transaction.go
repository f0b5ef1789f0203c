package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/models"
)

// TransactionService exposes the read-only transfer history surface.
// Transactions are never mutated here; status changes belong exclusively to
// the webhook reconciler and the expiry sweep.
type TransactionService struct {
	store TransactionStore
}

func NewTransactionService(store TransactionStore) *TransactionService {
	return &TransactionService{store: store}
}

const defaultListLimit = 50

// List returns the user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID uuid.UUID, status string, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	return s.store.ListTransactions(ctx, userID, status, limit)
}

// Get fetches one of the user's transactions.
func (s *TransactionService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, id, userID)
}

// Stats aggregates the user's transfer history.
func (s *TransactionService) Stats(ctx context.Context, userID uuid.UUID) (*models.TransactionStats, error) {
	return s.store.TransactionStats(ctx, userID)
}
