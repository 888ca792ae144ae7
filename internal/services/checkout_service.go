package services

import (
	"context"

	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/payment"
	"stillpoint_backend/internal/repositories"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/pkg/apperrors"
)

// CheckoutService starts a hosted checkout for a paid session and records the
// pending ledger row before the client is redirected. The reconciler later
// settles the row from webhook events.
type CheckoutService interface {
	BeginCheckout(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
}

type CheckoutServiceImpl struct {
	sessionRepo  repositories.SessionRepository
	purchaseRepo repositories.PurchaseRepository
	provider     payment.PaymentProvider
}

func NewCheckoutService(
	sessionRepo repositories.SessionRepository,
	purchaseRepo repositories.PurchaseRepository,
	provider payment.PaymentProvider,
) CheckoutService {
	return &CheckoutServiceImpl{
		sessionRepo:  sessionRepo,
		purchaseRepo: purchaseRepo,
		provider:     provider,
	}
}

func (s *CheckoutServiceImpl) BeginCheckout(ctx context.Context, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	session, err := s.sessionRepo.FindByID(req.SessionID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrSessionNotFound) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, apperrors.InternalError(err)
	}

	if !session.Published {
		return nil, apperrors.ErrSessionNotFound
	}

	// Free content never goes through checkout; a non-positive price on a
	// paid item is a catalog mistake, not something to charge zero for.
	if session.IsFree() {
		return nil, apperrors.ErrSessionNotPurchasable
	}
	if session.Price <= 0 {
		return nil, apperrors.ErrSessionNotPurchasable
	}

	// A child item is bought through its parent collection.
	if session.ParentID != nil {
		return nil, apperrors.ErrSessionNotPurchasable.
			WithDetails("this session is part of a collection; purchase the collection instead")
	}

	result, err := s.provider.CreateCheckoutSession(ctx, payment.CheckoutInput{
		SessionID: session.ID,
		Title:     session.Title,
		Email:     req.Email,
		Name:      req.Name,
		Amount:    session.Price,
		Currency:  session.Currency,
	})
	if err != nil {
		return nil, err
	}

	purchase := &models.Purchase{
		SessionID:         session.ID,
		Email:             req.Email,
		Amount:            session.Price,
		Currency:          session.Currency,
		Status:            models.PurchaseStatusPending,
		CheckoutSessionID: result.CheckoutSessionID,
	}

	// A completed webhook can land before this insert; the on-conflict
	// guard makes whichever write arrives second a no-op.
	if err := s.purchaseRepo.CreateIfAbsent(purchase); err != nil {
		if !apperrors.Is(err, repositories.ErrPurchaseExists) {
			return nil, apperrors.InternalError(err)
		}
	}

	logger.CtxInfo(ctx, "Checkout started",
		"session_id", session.ID,
		"checkout_session_id", result.CheckoutSessionID,
		"amount", session.Price,
		"currency", session.Currency,
	)

	return &dto.CheckoutResponse{
		CheckoutSessionID: result.CheckoutSessionID,
		URL:               result.URL,
	}, nil
}
