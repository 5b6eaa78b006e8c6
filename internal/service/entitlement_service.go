package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/repository"
	"github.com/rs/zerolog"
)

// EntitlementService handles purchased exam access. The storefront calls
// Grant on every completed order; granting is idempotent.
type EntitlementService struct {
	entitlementRepo *repository.EntitlementRepository
	productRepo     *repository.ProductRepository
	log             zerolog.Logger
}

// NewEntitlementService creates a new EntitlementService.
func NewEntitlementService(
	entitlementRepo *repository.EntitlementRepository,
	productRepo *repository.ProductRepository,
	log zerolog.Logger,
) *EntitlementService {
	return &EntitlementService{
		entitlementRepo: entitlementRepo,
		productRepo:     productRepo,
		log:             log.With().Str("component", "entitlement_service").Logger(),
	}
}

// Grant records a candidate's access to a product.
func (s *EntitlementService) Grant(ctx context.Context, candidateID int, productID uuid.UUID) error {
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if err := s.entitlementRepo.Grant(ctx, candidateID, productID); err != nil {
		return err
	}
	s.log.Info().
		Int("candidate_id", candidateID).
		Str("product_id", productID.String()).
		Msg("Entitlement granted")
	return nil
}

// Revoke removes a candidate's access to a product.
func (s *EntitlementService) Revoke(ctx context.Context, candidateID int, productID uuid.UUID) error {
	return s.entitlementRepo.Revoke(ctx, candidateID, productID)
}

// Has reports whether a candidate owns access to a product.
func (s *EntitlementService) Has(ctx context.Context, candidateID int, productID uuid.UUID) (bool, error) {
	return s.entitlementRepo.Has(ctx, candidateID, productID)
}

// ListOwned returns the published products a candidate owns access to.
func (s *EntitlementService) ListOwned(ctx context.Context, candidateID int) ([]model.ExamProduct, error) {
	ids, err := s.entitlementRepo.ListProductIDs(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	products := make([]model.ExamProduct, 0, len(ids))
	for _, id := range ids {
		p, err := s.productRepo.GetByID(ctx, id)
		if err != nil {
			continue // product deleted, skip
		}
		if p.Status != model.ProductStatusPublished {
			continue
		}
		products = append(products, *p)
	}
	return products, nil
}
