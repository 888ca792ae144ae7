package workers

import (
	"context"
	"time"

	"stillpoint_backend/internal/logger"
	"stillpoint_backend/internal/repositories"
)

const (
	tokenSweepInterval    = time.Hour
	purchaseSweepInterval = 15 * time.Minute

	// stalePendingAge mirrors the hosted checkout expiry with headroom for
	// slow webhook delivery; rows still pending after this were abandoned.
	stalePendingAge = time.Hour
)

// CleanupWorker sweeps expired credentials and abandoned checkouts in the
// background.
type CleanupWorker struct {
	refreshTokenRepo repositories.RefreshTokenRepository
	passwordResets   repositories.PasswordResetRepository
	purchaseRepo     repositories.PurchaseRepository
}

func NewCleanupWorker(
	refreshTokenRepo repositories.RefreshTokenRepository,
	passwordResets repositories.PasswordResetRepository,
	purchaseRepo repositories.PurchaseRepository,
) *CleanupWorker {
	return &CleanupWorker{
		refreshTokenRepo: refreshTokenRepo,
		passwordResets:   passwordResets,
		purchaseRepo:     purchaseRepo,
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	go w.sweepTokens(ctx)
	go w.expireStalePurchases(ctx)
}

func (w *CleanupWorker) sweepTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Token sweep worker stopped")
			return
		case <-ticker.C:
			if n, err := w.refreshTokenRepo.DeleteExpired(); err != nil {
				logger.WithError(err).Error("Failed to sweep refresh tokens")
			} else if n > 0 {
				logger.Info("Swept expired refresh tokens", "count", n)
			}

			if n, err := w.passwordResets.DeleteExpired(); err != nil {
				logger.WithError(err).Error("Failed to sweep reset tokens")
			} else if n > 0 {
				logger.Info("Swept expired reset tokens", "count", n)
			}
		}
	}
}

// expireStalePurchases fails pending ledger rows whose checkout session has
// long expired, so abandoned checkouts do not sit pending forever.
func (w *CleanupWorker) expireStalePurchases(ctx context.Context) {
	ticker := time.NewTicker(purchaseSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Purchase sweep worker stopped")
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-stalePendingAge)
			if n, err := w.purchaseRepo.ExpireStalePending(cutoff, "checkout_expired"); err != nil {
				logger.WithError(err).Error("Failed to expire stale purchases")
			} else if n > 0 {
				logger.Info("Expired stale pending purchases", "count", n)
			}
		}
	}
}
