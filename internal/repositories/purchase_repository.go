package repositories

import (
	"errors"
	"time"

	"stillpoint_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPurchaseNotFound = errors.New("purchase not found")
	// ErrPurchaseExists signals the row was already present (idempotent
	// insert hit the unique constraint).
	ErrPurchaseExists = errors.New("purchase already recorded")
)

type PurchaseRepository interface {
	// CreateIfAbsent inserts the purchase unless a row with the same
	// checkout-session id already exists. Backed by the unique constraint
	// plus ON CONFLICT DO NOTHING, so concurrent duplicate webhook
	// deliveries collapse onto one row. Returns ErrPurchaseExists when the
	// row was already there.
	CreateIfAbsent(purchase *models.Purchase) error
	FindByCheckoutSessionID(id string) (*models.Purchase, error)
	FindByPaymentIntentID(id string) (*models.Purchase, error)
	// MarkCompleted transitions a row to completed/access-granted. Completed
	// is terminal: the guard refuses to touch anything already completed.
	MarkCompleted(id string, paymentIntentID string, netAmount float64, paidAt time.Time) error
	// MarkFailed transitions a row to failed/access-revoked. A completed row
	// never regresses; in that case ErrPurchaseNotFound is returned.
	MarkFailed(id string, reason string) error
	HasCompletedForSession(sessionID, email string) (bool, error)
	ListByEmail(email string) ([]models.Purchase, error)
	ListAll(limit, offset int) ([]models.Purchase, int64, error)
	// ExpireStalePending fails pending rows older than the cutoff (hosted
	// checkout sessions that were abandoned).
	ExpireStalePending(cutoff time.Time, reason string) (int64, error)
}

type PurchaseRepositoryImpl struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &PurchaseRepositoryImpl{db: db}
}

func (r *PurchaseRepositoryImpl) CreateIfAbsent(purchase *models.Purchase) error {
	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "checkout_session_id"}},
		DoNothing: true,
	}).Create(purchase)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPurchaseExists
	}
	return nil
}

func (r *PurchaseRepositoryImpl) FindByCheckoutSessionID(id string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.Where("checkout_session_id = ?", id).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

func (r *PurchaseRepositoryImpl) FindByPaymentIntentID(id string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.Where("payment_intent_id = ?", id).First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	return &purchase, nil
}

func (r *PurchaseRepositoryImpl) MarkCompleted(id string, paymentIntentID string, netAmount float64, paidAt time.Time) error {
	result := r.db.Model(&models.Purchase{}).
		Where("id = ? AND status <> ?", id, models.PurchaseStatusCompleted).
		Updates(map[string]interface{}{
			"status":            models.PurchaseStatusCompleted,
			"access_granted":    true,
			"payment_intent_id": paymentIntentID,
			"net_amount":        netAmount,
			"failure_reason":    "",
			"paid_at":           paidAt,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}

func (r *PurchaseRepositoryImpl) MarkFailed(id string, reason string) error {
	result := r.db.Model(&models.Purchase{}).
		Where("id = ? AND status <> ?", id, models.PurchaseStatusCompleted).
		Updates(map[string]interface{}{
			"status":         models.PurchaseStatusFailed,
			"access_granted": false,
			"failure_reason": reason,
			"updated_at":     time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}

func (r *PurchaseRepositoryImpl) HasCompletedForSession(sessionID, email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Purchase{}).
		Where("session_id = ? AND email = ? AND status = ? AND access_granted = ?",
			sessionID, email, models.PurchaseStatusCompleted, true).
		Count(&count).Error
	return count > 0, err
}

func (r *PurchaseRepositoryImpl) ListByEmail(email string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.Where("email = ?", email).Order("created_at DESC").Find(&purchases).Error
	return purchases, err
}

func (r *PurchaseRepositoryImpl) ListAll(limit, offset int) ([]models.Purchase, int64, error) {
	var purchases []models.Purchase

	var total int64
	if err := r.db.Model(&models.Purchase{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&purchases).Error
	return purchases, total, err
}

func (r *PurchaseRepositoryImpl) ExpireStalePending(cutoff time.Time, reason string) (int64, error) {
	result := r.db.Model(&models.Purchase{}).
		Where("status = ? AND created_at < ?", models.PurchaseStatusPending, cutoff).
		Updates(map[string]interface{}{
			"status":         models.PurchaseStatusFailed,
			"access_granted": false,
			"failure_reason": reason,
			"updated_at":     time.Now(),
		})
	return result.RowsAffected, result.Error
}
