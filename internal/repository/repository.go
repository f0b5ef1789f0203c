package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rhaddadin/remitjo/internal/domain"
	"github.com/rhaddadin/remitjo/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const transactionColumns = `id, user_id, beneficiary_id, recipient_name, note,
	send_amount_eur, fee_eur, total_eur, amount_jod, total_jod, exchange_rate,
	status, session_id, created_at, updated_at`

// Repository provides transaction, beneficiary, and webhook-log persistence
// on top of a pgx connection pool.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateTransaction inserts a new transaction. The id is assigned here and
// the status forced to pending; timestamps come from the database.
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.Status = domain.StatusPending

	query := `
		INSERT INTO transactions (id, user_id, beneficiary_id, recipient_name, note,
			send_amount_eur, fee_eur, total_eur, amount_jod, total_jod, exchange_rate,
			status, session_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		tx.ID, tx.UserID, tx.BeneficiaryID, tx.RecipientName, tx.Note,
		tx.SendAmountEUR, tx.FeeEUR, tx.TotalEUR, tx.AmountJOD, tx.TotalJOD, tx.ExchangeRate,
		tx.Status, tx.SessionID,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransaction fetches a transaction owned by the given user.
func (r *Repository) GetTransaction(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1 AND user_id = $2`, transactionColumns)
	return r.scanTransaction(r.db.QueryRow(ctx, query, id, userID))
}

// GetTransactionBySessionID fetches a transaction by its external payment
// session id, regardless of owner. Used by the webhook reconciler.
func (r *Repository) GetTransactionBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE session_id = $1`, transactionColumns)
	return r.scanTransaction(r.db.QueryRow(ctx, query, sessionID))
}

// ListTransactions returns a user's transactions, newest first. status and
// limit are optional filters (empty / non-positive to disable).
func (r *Repository) ListTransactions(ctx context.Context, userID uuid.UUID, status string, limit int) ([]models.Transaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE user_id = $1`, transactionColumns)
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tx)
	}
	return out, rows.Err()
}

// TransactionStats aggregates a user's transfer totals and status counts.
func (r *Repository) TransactionStats(ctx context.Context, userID uuid.UUID) (*models.TransactionStats, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(total_eur), 0),
			COALESCE(SUM(total_jod), 0),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			COUNT(*) FILTER (WHERE status = 'expired')
		FROM transactions WHERE user_id = $1`
	stats := &models.TransactionStats{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&stats.TotalTransactions, &stats.TotalSentEUR, &stats.TotalSentJOD,
		&stats.Completed, &stats.Pending, &stats.Failed, &stats.Expired,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	return stats, nil
}

// TransitionStatus conditionally moves the transaction for a session from
// pending to the given terminal status. The WHERE clause makes it a single
// atomic compare-and-set: of two concurrent terminal events, exactly one
// applies. Returns false when no pending row matched (already terminal, or
// unknown session).
func (r *Repository) TransitionStatus(ctx context.Context, sessionID, next string) (bool, error) {
	if !domain.IsTerminal(next) {
		return false, fmt.Errorf("invalid target status: %s", next)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET status = $2, updated_at = NOW() WHERE session_id = $1 AND status = 'pending'`,
		sessionID, next,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireStale marks transactions still pending before the cutoff as expired,
// through the same pending-only conditional write as the reconciler.
func (r *Repository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions SET status = 'expired', updated_at = NOW() WHERE status = 'pending' AND created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InsertWebhookLog appends a processed gateway event to the audit trail.
func (r *Repository) InsertWebhookLog(ctx context.Context, transactionID *uuid.UUID, eventType string, payload []byte) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO webhook_logs (transaction_id, event_type, payload, created_at) VALUES ($1, $2, $3, NOW())`,
		transactionID, eventType, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert webhook log: %w", err)
	}
	return nil
}

func (r *Repository) scanTransaction(row pgx.Row) (*models.Transaction, error) {
	tx := &models.Transaction{}
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.BeneficiaryID, &tx.RecipientName, &tx.Note,
		&tx.SendAmountEUR, &tx.FeeEUR, &tx.TotalEUR, &tx.AmountJOD, &tx.TotalJOD, &tx.ExchangeRate,
		&tx.Status, &tx.SessionID, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	return tx, nil
}

// CreateBeneficiary inserts a recipient profile for a user.
func (r *Repository) CreateBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	query := `
		INSERT INTO beneficiaries (id, user_id, name, email, phone_number, country, iban, cliq_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at`
	err := r.db.QueryRow(ctx, query,
		b.ID, b.UserID, b.Name, b.Email, b.PhoneNumber, b.Country, b.IBAN, b.CliqID,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create beneficiary: %w", err)
	}
	return nil
}

// ListBeneficiaries returns a user's saved recipients, optionally filtered by
// a case-insensitive name match.
func (r *Repository) ListBeneficiaries(ctx context.Context, userID uuid.UUID, search string) ([]models.Beneficiary, error) {
	query := `SELECT id, user_id, name, email, phone_number, country, iban, cliq_id, created_at
		FROM beneficiaries WHERE user_id = $1`
	args := []any{userID}
	if search != "" {
		query += ` AND name ILIKE $2`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list beneficiaries: %w", err)
	}
	defer rows.Close()

	var out []models.Beneficiary
	for rows.Next() {
		var b models.Beneficiary
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name, &b.Email, &b.PhoneNumber, &b.Country, &b.IBAN, &b.CliqID, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBeneficiary fetches one of the user's recipients.
func (r *Repository) GetBeneficiary(ctx context.Context, id, userID uuid.UUID) (*models.Beneficiary, error) {
	b := &models.Beneficiary{}
	query := `SELECT id, user_id, name, email, phone_number, country, iban, cliq_id, created_at
		FROM beneficiaries WHERE id = $1 AND user_id = $2`
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&b.ID, &b.UserID, &b.Name, &b.Email, &b.PhoneNumber, &b.Country, &b.IBAN, &b.CliqID, &b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}
	return b, nil
}

// UpdateBeneficiary rewrites the mutable fields of a user's recipient.
func (r *Repository) UpdateBeneficiary(ctx context.Context, b *models.Beneficiary) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE beneficiaries SET name = $3, email = $4, phone_number = $5, country = $6, iban = $7, cliq_id = $8
		WHERE id = $1 AND user_id = $2`,
		b.ID, b.UserID, b.Name, b.Email, b.PhoneNumber, b.Country, b.IBAN, b.CliqID,
	)
	if err != nil {
		return fmt.Errorf("failed to update beneficiary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBeneficiary removes a user's recipient.
func (r *Repository) DeleteBeneficiary(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM beneficiaries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete beneficiary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
