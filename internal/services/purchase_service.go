package services

import (
	"context"

	"stillpoint_backend/internal/repositories"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/pkg/apperrors"
)

// PurchaseService exposes read views over the ledger. Writes only happen
// through checkout and reconciliation.
type PurchaseService interface {
	ListForEmail(ctx context.Context, email string) ([]dto.PurchaseDTO, error)
	ListAll(ctx context.Context, query *dto.PaginationQuery) (*dto.PurchaseListResponse, error)
	GetByCheckoutSessionID(ctx context.Context, id string) (*dto.PurchaseDTO, error)
}

type PurchaseServiceImpl struct {
	purchaseRepo repositories.PurchaseRepository
}

func NewPurchaseService(purchaseRepo repositories.PurchaseRepository) PurchaseService {
	return &PurchaseServiceImpl{purchaseRepo: purchaseRepo}
}

func (s *PurchaseServiceImpl) ListForEmail(ctx context.Context, email string) ([]dto.PurchaseDTO, error) {
	purchases, err := s.purchaseRepo.ListByEmail(email)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	result := make([]dto.PurchaseDTO, 0, len(purchases))
	for i := range purchases {
		result = append(result, dto.NewPurchaseDTO(&purchases[i]))
	}
	return result, nil
}

func (s *PurchaseServiceImpl) ListAll(ctx context.Context, query *dto.PaginationQuery) (*dto.PurchaseListResponse, error) {
	limit, offset := query.Normalize()

	purchases, total, err := s.purchaseRepo.ListAll(limit, offset)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.PurchaseListResponse{
		Purchases: make([]dto.PurchaseDTO, 0, len(purchases)),
		Meta:      dto.ListMeta{Page: query.Page, Limit: limit, Total: total},
	}
	for i := range purchases {
		resp.Purchases = append(resp.Purchases, dto.NewPurchaseDTO(&purchases[i]))
	}
	return resp, nil
}

// GetByCheckoutSessionID backs the post-payment success page, which polls
// until the reconciler settles the row.
func (s *PurchaseServiceImpl) GetByCheckoutSessionID(ctx context.Context, id string) (*dto.PurchaseDTO, error) {
	purchase, err := s.purchaseRepo.FindByCheckoutSessionID(id)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPurchaseNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	d := dto.NewPurchaseDTO(purchase)
	return &d, nil
}
