package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/domain"
	"github.com/rhaddadin/remitjo/internal/models"
	"github.com/rhaddadin/remitjo/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiryWorkerOnlyExpiresStalePending(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	stale := &models.Transaction{
		UserID:        uuid.New(),
		RecipientName: "Omar",
		SendAmountEUR: decimal.RequireFromString("10"),
		TotalEUR:      decimal.RequireFromString("10.40"),
		SessionID:     "sess_stale",
	}
	require.NoError(t, store.CreateTransaction(ctx, stale))

	fresh := &models.Transaction{
		UserID:        uuid.New(),
		RecipientName: "Rana",
		SendAmountEUR: decimal.RequireFromString("20"),
		TotalEUR:      decimal.RequireFromString("20.80"),
		SessionID:     "sess_fresh",
	}
	require.NoError(t, store.CreateTransaction(ctx, fresh))

	settled := &models.Transaction{
		UserID:        uuid.New(),
		RecipientName: "Samir",
		SendAmountEUR: decimal.RequireFromString("30"),
		TotalEUR:      decimal.RequireFromString("31.20"),
		SessionID:     "sess_done",
	}
	require.NoError(t, store.CreateTransaction(ctx, settled))
	applied, err := store.TransitionStatus(ctx, "sess_done", domain.StatusCompleted)
	require.NoError(t, err)
	require.True(t, applied)

	// A zero TTL makes every created-before-now pending row stale, except the
	// fresh one which we exclude with a long TTL sweep first.
	w := NewExpiryWorker(store).WithSessionTTL(time.Hour)
	w.RunOnce(ctx)

	got, err := store.GetTransactionBySessionID(ctx, "sess_stale")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status, "within TTL, nothing expires")

	w = NewExpiryWorker(store).WithSessionTTL(time.Nanosecond)
	time.Sleep(10 * time.Millisecond)
	w.RunOnce(ctx)

	got, err = store.GetTransactionBySessionID(ctx, "sess_stale")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, got.Status)

	got, err = store.GetTransactionBySessionID(ctx, "sess_done")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status, "terminal rows are untouched")
}

func TestExpiryWorkerRunAndStop(t *testing.T) {
	store := repository.NewMemoryStore()
	w := NewExpiryWorker(store).WithInterval(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := w.Run(ctx)
	time.Sleep(10 * time.Millisecond)
	stop()
	// Stop is idempotent.
	stop()
}
