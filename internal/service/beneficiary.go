package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rhaddadin/remitjo/internal/models"
)

// BeneficiaryService manages saved recipient profiles. Contact-field format
// checks (phone, IBAN) are left to the UI; the service only requires the
// fields the transfer flow needs.
type BeneficiaryService struct {
	store BeneficiaryStore
}

func NewBeneficiaryService(store BeneficiaryStore) *BeneficiaryService {
	return &BeneficiaryService{store: store}
}

func (s *BeneficiaryService) validate(b *models.Beneficiary) error {
	b.Name = strings.TrimSpace(b.Name)
	b.Country = strings.TrimSpace(b.Country)
	if b.Name == "" {
		return invalidField("name", "name is required")
	}
	if b.Country == "" {
		return invalidField("country", "country is required")
	}
	return nil
}

func (s *BeneficiaryService) Create(ctx context.Context, b *models.Beneficiary) error {
	if b.UserID == uuid.Nil {
		return invalidField("user_id", "user_id is required")
	}
	if err := s.validate(b); err != nil {
		return err
	}
	return s.store.CreateBeneficiary(ctx, b)
}

func (s *BeneficiaryService) List(ctx context.Context, userID uuid.UUID, search string) ([]models.Beneficiary, error) {
	return s.store.ListBeneficiaries(ctx, userID, strings.TrimSpace(search))
}

func (s *BeneficiaryService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Beneficiary, error) {
	return s.store.GetBeneficiary(ctx, id, userID)
}

func (s *BeneficiaryService) Update(ctx context.Context, b *models.Beneficiary) error {
	if err := s.validate(b); err != nil {
		return err
	}
	return s.store.UpdateBeneficiary(ctx, b)
}

func (s *BeneficiaryService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.store.DeleteBeneficiary(ctx, id, userID)
}
