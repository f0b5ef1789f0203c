package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/domain"
	"github.com/rhaddadin/remitjo/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-memory implementation of the store contracts, used by
// tests and local development without Postgres. The status transition holds
// the same pending-only compare-and-set semantics as the SQL UPDATE.
type MemoryStore struct {
	mu            sync.Mutex
	transactions  map[uuid.UUID]*models.Transaction
	bySession     map[string]uuid.UUID
	beneficiaries map[uuid.UUID]*models.Beneficiary
	webhookLogs   []models.WebhookLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions:  make(map[uuid.UUID]*models.Transaction),
		bySession:     make(map[string]uuid.UUID),
		beneficiaries: make(map[uuid.UUID]*models.Beneficiary),
	}
}

func (m *MemoryStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.Status = domain.StatusPending
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now

	cp := *tx
	m.transactions[tx.ID] = &cp
	if tx.SessionID != "" {
		m.bySession[tx.SessionID] = tx.ID
	}
	return nil
}

func (m *MemoryStore) GetTransaction(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, ok := m.transactions[id]
	if !ok || tx.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (m *MemoryStore) GetTransactionBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.bySession[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.transactions[id]
	return &cp, nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, userID uuid.UUID, status string, limit int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Transaction
	for _, tx := range m.transactions {
		if tx.UserID != userID {
			continue
		}
		if status != "" && tx.Status != status {
			continue
		}
		out = append(out, *tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) TransactionStats(ctx context.Context, userID uuid.UUID) (*models.TransactionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &models.TransactionStats{
		TotalSentEUR: decimal.Zero,
		TotalSentJOD: decimal.Zero,
	}
	for _, tx := range m.transactions {
		if tx.UserID != userID {
			continue
		}
		stats.TotalTransactions++
		stats.TotalSentEUR = stats.TotalSentEUR.Add(tx.TotalEUR)
		stats.TotalSentJOD = stats.TotalSentJOD.Add(tx.TotalJOD)
		switch tx.Status {
		case domain.StatusCompleted:
			stats.Completed++
		case domain.StatusPending:
			stats.Pending++
		case domain.StatusFailed:
			stats.Failed++
		case domain.StatusExpired:
			stats.Expired++
		}
	}
	return stats, nil
}

func (m *MemoryStore) TransitionStatus(ctx context.Context, sessionID, next string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.bySession[sessionID]
	if !ok {
		return false, nil
	}
	tx := m.transactions[id]
	if tx.Status != domain.StatusPending || !domain.IsTerminal(next) {
		return false, nil
	}
	tx.Status = next
	tx.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *MemoryStore) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, tx := range m.transactions {
		if tx.Status == domain.StatusPending && tx.CreatedAt.Before(cutoff) {
			tx.Status = domain.StatusExpired
			tx.UpdatedAt = time.Now().UTC()
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) InsertWebhookLog(ctx context.Context, transactionID *uuid.UUID, eventType string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.webhookLogs = append(m.webhookLogs, models.WebhookLog{
		ID:            int64(len(m.webhookLogs) + 1),
		TransactionID: transactionID,
		EventType:     eventType,
		Payload:       append([]byte(nil), payload...),
		CreatedAt:     time.Now().UTC(),
	})
	return nil
}

// WebhookLogs returns a copy of the recorded webhook events.
func (m *MemoryStore) WebhookLogs() []models.WebhookLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.WebhookLog(nil), m.webhookLogs...)
}

func (m *MemoryStore) CreateBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now().UTC()
	cp := *b
	m.beneficiaries[b.ID] = &cp
	return nil
}

func (m *MemoryStore) ListBeneficiaries(ctx context.Context, userID uuid.UUID, search string) ([]models.Beneficiary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Beneficiary
	for _, b := range m.beneficiaries {
		if b.UserID != userID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(b.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) GetBeneficiary(ctx context.Context, id, userID uuid.UUID) (*models.Beneficiary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.beneficiaries[id]
	if !ok || b.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *MemoryStore) UpdateBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.beneficiaries[b.ID]
	if !ok || existing.UserID != b.UserID {
		return ErrNotFound
	}
	b.CreatedAt = existing.CreatedAt
	cp := *b
	m.beneficiaries[b.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteBeneficiary(ctx context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.beneficiaries[id]
	if !ok || b.UserID != userID {
		return ErrNotFound
	}
	delete(m.beneficiaries, id)
	return nil
}
