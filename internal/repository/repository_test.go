package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhaddadin/remitjo/internal/domain"
	"github.com/rhaddadin/remitjo/internal/models"
	"github.com/rhaddadin/remitjo/internal/repository"
	"github.com/rhaddadin/remitjo/internal/testutil/dblock"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		// Postgres-backed tests skip themselves via requireDB.
		os.Exit(m.Run())
	}

	release := dblock.Acquire()
	var err error
	testDB, err = pgxpool.New(context.Background(), connStr)
	if err != nil {
		release()
		fmt.Printf("Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer testDB.Close()

	ctx := context.Background()
	if err := testDB.Ping(ctx); err != nil {
		release()
		fmt.Printf("Unable to ping database: %v\n", err)
		os.Exit(1)
	}
	ensureSchema(ctx)

	code := m.Run()
	release()
	os.Exit(code)
}

func ensureSchema(ctx context.Context) {
	ddl := `
CREATE TABLE IF NOT EXISTS beneficiaries (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	phone_number TEXT NOT NULL DEFAULT '',
	country TEXT NOT NULL,
	iban TEXT NOT NULL DEFAULT '',
	cliq_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS transactions (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	beneficiary_id UUID REFERENCES beneficiaries (id) ON DELETE SET NULL,
	recipient_name TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	send_amount_eur NUMERIC(12,2) NOT NULL,
	fee_eur NUMERIC(12,2) NOT NULL,
	total_eur NUMERIC(12,2) NOT NULL,
	amount_jod NUMERIC(12,2) NOT NULL,
	total_jod NUMERIC(12,2) NOT NULL,
	exchange_rate NUMERIC(12,6) NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	session_id TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS webhook_logs (
	id BIGSERIAL PRIMARY KEY,
	transaction_id UUID REFERENCES transactions (id) ON DELETE SET NULL,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	if _, err := testDB.Exec(ctx, ddl); err != nil {
		fmt.Printf("failed to ensure schema: %v\n", err)
		os.Exit(1)
	}
}

func requireDB(t *testing.T) *repository.Repository {
	t.Helper()
	if testDB == nil {
		t.Skip("DATABASE_URL not set")
	}
	_, err := testDB.Exec(context.Background(), "TRUNCATE TABLE webhook_logs, transactions, beneficiaries CASCADE")
	require.NoError(t, err)
	return repository.NewRepository(testDB)
}

func newTestTransaction(userID uuid.UUID, sessionID string) *models.Transaction {
	return &models.Transaction{
		UserID:        userID,
		RecipientName: "Layla Haddad",
		SendAmountEUR: decimal.RequireFromString("10.00"),
		FeeEUR:        decimal.RequireFromString("0.40"),
		TotalEUR:      decimal.RequireFromString("10.40"),
		AmountJOD:     decimal.RequireFromString("8.50"),
		TotalJOD:      decimal.RequireFromString("8.84"),
		ExchangeRate:  decimal.RequireFromString("0.85"),
		SessionID:     sessionID,
	}
}

func TestCreateAndGetTransaction(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()
	userID := uuid.New()

	tx := newTestTransaction(userID, "sess_create_1")
	require.NoError(t, repo.CreateTransaction(ctx, tx))
	require.NotEqual(t, uuid.Nil, tx.ID)
	assert.Equal(t, domain.StatusPending, tx.Status)
	assert.False(t, tx.CreatedAt.IsZero())

	got, err := repo.GetTransaction(ctx, tx.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, "sess_create_1", got.SessionID)
	assert.True(t, got.TotalEUR.Equal(decimal.RequireFromString("10.40")))

	_, err = repo.GetTransaction(ctx, tx.ID, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	bySession, err := repo.GetTransactionBySessionID(ctx, "sess_create_1")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, bySession.ID)

	_, err = repo.GetTransactionBySessionID(ctx, "sess_unknown")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransitionStatusAppliesOnce(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()

	tx := newTestTransaction(uuid.New(), "sess_cas_1")
	require.NoError(t, repo.CreateTransaction(ctx, tx))

	applied, err := repo.TransitionStatus(ctx, "sess_cas_1", domain.StatusCompleted)
	require.NoError(t, err)
	assert.True(t, applied)

	// The second terminal event loses the race and must not overwrite.
	applied, err = repo.TransitionStatus(ctx, "sess_cas_1", domain.StatusExpired)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetTransactionBySessionID(ctx, "sess_cas_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	applied, err = repo.TransitionStatus(ctx, "sess_missing", domain.StatusCompleted)
	require.NoError(t, err)
	assert.False(t, applied)

	_, err = repo.TransitionStatus(ctx, "sess_cas_1", "pending")
	assert.Error(t, err)
}

func TestTransitionStatusConcurrent(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()

	tx := newTestTransaction(uuid.New(), "sess_race_1")
	require.NoError(t, repo.CreateTransaction(ctx, tx))

	type outcome struct {
		applied bool
		err     error
	}

	var wg sync.WaitGroup
	results := make(chan outcome, 2)
	for _, next := range []string{domain.StatusCompleted, domain.StatusExpired} {
		next := next
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := repo.TransitionStatus(ctx, "sess_race_1", next)
			results <- outcome{applied: applied, err: err}
		}()
	}
	wg.Wait()
	close(results)

	appliedCount := 0
	for res := range results {
		require.NoError(t, res.err)
		if res.applied {
			appliedCount++
		}
	}
	assert.Equal(t, 1, appliedCount)
}

func TestExpireStale(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()

	stale := newTestTransaction(uuid.New(), "sess_stale_1")
	require.NoError(t, repo.CreateTransaction(ctx, stale))
	_, err := testDB.Exec(ctx,
		"UPDATE transactions SET created_at = NOW() - INTERVAL '48 hours' WHERE id = $1", stale.ID)
	require.NoError(t, err)

	fresh := newTestTransaction(uuid.New(), "sess_fresh_1")
	require.NoError(t, repo.CreateTransaction(ctx, fresh))

	done := newTestTransaction(uuid.New(), "sess_done_1")
	require.NoError(t, repo.CreateTransaction(ctx, done))
	_, err = testDB.Exec(ctx,
		"UPDATE transactions SET created_at = NOW() - INTERVAL '48 hours', status = 'completed' WHERE id = $1", done.ID)
	require.NoError(t, err)

	n, err := repo.ExpireStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetTransactionBySessionID(ctx, "sess_stale_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)

	got, err = repo.GetTransactionBySessionID(ctx, "sess_fresh_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)

	got, err = repo.GetTransactionBySessionID(ctx, "sess_done_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
}

func TestListTransactionsAndStats(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		tx := newTestTransaction(userID, fmt.Sprintf("sess_list_%d", i))
		require.NoError(t, repo.CreateTransaction(ctx, tx))
	}
	_, err := repo.TransitionStatus(ctx, "sess_list_0", domain.StatusCompleted)
	require.NoError(t, err)

	other := newTestTransaction(uuid.New(), "sess_list_other")
	require.NoError(t, repo.CreateTransaction(ctx, other))

	all, err := repo.ListTransactions(ctx, userID, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	completed, err := repo.ListTransactions(ctx, userID, domain.StatusCompleted, 0)
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	limited, err := repo.ListTransactions(ctx, userID, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	stats, err := repo.TransactionStats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTransactions)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 2, stats.Pending)
	assert.True(t, stats.TotalSentEUR.Equal(decimal.RequireFromString("31.20")), "total was %s", stats.TotalSentEUR)
}

func TestWebhookLogInsert(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()

	tx := newTestTransaction(uuid.New(), "sess_log_1")
	require.NoError(t, repo.CreateTransaction(ctx, tx))

	payload := []byte(`{"type":"checkout.session.completed","data":{"object":{"id":"sess_log_1"}}}`)
	require.NoError(t, repo.InsertWebhookLog(ctx, &tx.ID, domain.EventCheckoutCompleted, payload))

	var count int
	require.NoError(t, testDB.QueryRow(ctx,
		"SELECT COUNT(*) FROM webhook_logs WHERE transaction_id = $1", tx.ID).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestBeneficiaryCRUD(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()
	userID := uuid.New()

	b := &models.Beneficiary{
		UserID:  userID,
		Name:    "Rania Khalil",
		Country: "JO",
		CliqID:  "RANIAKH",
	}
	require.NoError(t, repo.CreateBeneficiary(ctx, b))
	require.NotEqual(t, uuid.Nil, b.ID)

	got, err := repo.GetBeneficiary(ctx, b.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, "Rania Khalil", got.Name)

	_, err = repo.GetBeneficiary(ctx, b.ID, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	matches, err := repo.ListBeneficiaries(ctx, userID, "rania")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	none, err := repo.ListBeneficiaries(ctx, userID, "zeina")
	require.NoError(t, err)
	assert.Empty(t, none)

	b.Name = "Rania K."
	b.IBAN = "JO94CBJO0010000000000131000302"
	require.NoError(t, repo.UpdateBeneficiary(ctx, b))
	got, err = repo.GetBeneficiary(ctx, b.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, "Rania K.", got.Name)

	require.NoError(t, repo.DeleteBeneficiary(ctx, b.ID, userID))
	assert.ErrorIs(t, repo.DeleteBeneficiary(ctx, b.ID, userID), repository.ErrNotFound)
}
