package repositories

import (
	"errors"
	"time"

	"stillpoint_backend/internal/models"

	"gorm.io/gorm"
)

var ErrResetTokenNotFound = errors.New("password reset token not found")

type PasswordResetRepository interface {
	Create(token *models.PasswordResetToken) error
	FindByToken(token string) (*models.PasswordResetToken, error)
	// MarkUsed consumes a token. Only an unused token can be consumed; a
	// second call for the same token returns ErrResetTokenNotFound.
	MarkUsed(token string) error
	// InvalidateForEmail marks all outstanding unused tokens for an email as
	// used, so only the most recently issued link works.
	InvalidateForEmail(email string) error
	DeleteExpired() (int64, error)
}

type PasswordResetRepositoryImpl struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &PasswordResetRepositoryImpl{db: db}
}

func (r *PasswordResetRepositoryImpl) Create(token *models.PasswordResetToken) error {
	return r.db.Create(token).Error
}

func (r *PasswordResetRepositoryImpl) FindByToken(token string) (*models.PasswordResetToken, error) {
	var reset models.PasswordResetToken
	err := r.db.Where("token = ?", token).First(&reset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResetTokenNotFound
		}
		return nil, err
	}
	return &reset, nil
}

func (r *PasswordResetRepositoryImpl) MarkUsed(token string) error {
	// The used guard in the WHERE clause makes consumption single-shot even
	// under concurrent redemption attempts.
	result := r.db.Model(&models.PasswordResetToken{}).
		Where("token = ? AND used = ?", token, false).
		Updates(map[string]interface{}{
			"used":       true,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrResetTokenNotFound
	}
	return nil
}

func (r *PasswordResetRepositoryImpl) InvalidateForEmail(email string) error {
	return r.db.Model(&models.PasswordResetToken{}).
		Where("email = ? AND used = ?", email, false).
		Update("used", true).Error
}

func (r *PasswordResetRepositoryImpl) DeleteExpired() (int64, error) {
	result := r.db.Where("expires_at < ? OR used = ?", time.Now(), true).
		Delete(&models.PasswordResetToken{})
	return result.RowsAffected, result.Error
}
