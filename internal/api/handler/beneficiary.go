package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/models"
	"github.com/rhaddadin/remitjo/internal/repository"
	"github.com/rhaddadin/remitjo/internal/service"
	"go.uber.org/zap"
)

// BeneficiaryHandler manages saved recipients.
type BeneficiaryHandler struct {
	benSvc *service.BeneficiaryService
}

func NewBeneficiaryHandler(benSvc *service.BeneficiaryService) *BeneficiaryHandler {
	return &BeneficiaryHandler{benSvc: benSvc}
}

// BeneficiaryRequest is the request body for creating or updating a recipient.
type BeneficiaryRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Country     string `json:"country"`
	IBAN        string `json:"iban"`
	CliqID      string `json:"cliq_id"`
}

func (req *BeneficiaryRequest) apply(b *models.Beneficiary) {
	b.Name = req.Name
	b.Email = req.Email
	b.PhoneNumber = req.PhoneNumber
	b.Country = req.Country
	b.IBAN = req.IBAN
	b.CliqID = req.CliqID
}

// CreateBeneficiary handles POST /v1/beneficiaries.
func (h *BeneficiaryHandler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req BeneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	b := &models.Beneficiary{UserID: userID}
	req.apply(b)

	if err := h.benSvc.Create(r.Context(), b); err != nil {
		h.respondServiceError(w, r, err, "create beneficiary failed")
		return
	}

	RespondJSON(w, http.StatusCreated, b)
}

// ListBeneficiaries handles GET /v1/beneficiaries with an optional search term.
func (h *BeneficiaryHandler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	beneficiaries, err := h.benSvc.List(r.Context(), userID, r.URL.Query().Get("search"))
	if err != nil {
		zap.L().Error("list beneficiaries failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "beneficiary/list-failed", "Failed to list beneficiaries")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items": beneficiaries,
		"count": len(beneficiaries),
	})
}

// GetBeneficiary handles GET /v1/beneficiaries/{id}.
func (h *BeneficiaryHandler) GetBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-beneficiary-id", "Invalid beneficiary ID")
		return
	}

	b, err := h.benSvc.Get(r.Context(), id, userID)
	if err != nil {
		h.respondServiceError(w, r, err, "get beneficiary failed")
		return
	}

	RespondJSON(w, http.StatusOK, b)
}

// UpdateBeneficiary handles PUT /v1/beneficiaries/{id}.
func (h *BeneficiaryHandler) UpdateBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-beneficiary-id", "Invalid beneficiary ID")
		return
	}

	var req BeneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	b := &models.Beneficiary{ID: id, UserID: userID}
	req.apply(b)

	if err := h.benSvc.Update(r.Context(), b); err != nil {
		h.respondServiceError(w, r, err, "update beneficiary failed")
		return
	}

	RespondJSON(w, http.StatusOK, b)
}

// DeleteBeneficiary handles DELETE /v1/beneficiaries/{id}.
func (h *BeneficiaryHandler) DeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	userID, err := requestUser(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-beneficiary-id", "Invalid beneficiary ID")
		return
	}

	if err := h.benSvc.Delete(r.Context(), id, userID); err != nil {
		h.respondServiceError(w, r, err, "delete beneficiary failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *BeneficiaryHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		respondValidationError(w, r, ve)
	case errors.Is(err, repository.ErrNotFound):
		RespondError(w, r, http.StatusNotFound, "beneficiary/not-found", "Beneficiary not found")
	default:
		if status, ptype, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, ptype, msg)
			return
		}
		zap.L().Error(logMsg, zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "beneficiary/request-failed", "Beneficiary request failed")
	}
}
