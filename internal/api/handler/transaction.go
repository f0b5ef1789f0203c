package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/domain"
	"github.com/rhaddadin/remitjo/internal/repository"
	"github.com/rhaddadin/remitjo/internal/service"
	"go.uber.org/zap"
)

// TransactionHandler serves the transfer history surface.
type TransactionHandler struct {
	txSvc *service.TransactionService
}

func NewTransactionHandler(txSvc *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{txSvc: txSvc}
}

// ListTransactions handles GET /v1/transactions.
// Supports optional status and limit query parameters.
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status != "" && !domain.ValidStatus(status) {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-status", "status must be one of pending, completed, failed, expired")
		return
	}

	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	transactions, err := h.txSvc.List(r.Context(), userID, status, limit)
	if err != nil {
		zap.L().Error("list transactions failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "transaction/list-failed", "Failed to list transactions")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items": transactions,
		"count": len(transactions),
	})
}

// GetTransaction handles GET /v1/transactions/{id}.
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-transaction-id", "Invalid transaction ID")
		return
	}

	tx, err := h.txSvc.Get(r.Context(), txID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(w, r, http.StatusNotFound, "transaction/not-found", "Transaction not found")
			return
		}
		zap.L().Error("get transaction failed", zap.Error(err), zap.String("transaction_id", txID.String()))
		RespondError(w, r, http.StatusInternalServerError, "transaction/read-failed", "Failed to get transaction")
		return
	}

	RespondJSON(w, http.StatusOK, tx)
}

// GetTransactionStats handles GET /v1/transactions/stats.
func (h *TransactionHandler) GetTransactionStats(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	stats, err := h.txSvc.Stats(r.Context(), userID)
	if err != nil {
		zap.L().Error("transaction stats failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "transaction/stats-failed", "Failed to compute stats")
		return
	}

	RespondJSON(w, http.StatusOK, stats)
}
