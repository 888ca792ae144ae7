package repositories

import (
	"errors"

	"stillpoint_backend/internal/models"

	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	FindByID(id string) (*models.Session, error)
	// FindPublished returns published top-level sessions with their children
	// preloaded in collection order.
	FindPublished(category string, limit, offset int) ([]models.Session, int64, error)
	Create(session *models.Session) error
	Update(session *models.Session) error
	Delete(id string) error
	CountChildren(parentID string) (int64, error)
}

type SessionRepositoryImpl struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

func (r *SessionRepositoryImpl) FindByID(id string) (*models.Session, error) {
	var session models.Session
	err := r.db.Preload("Children", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepositoryImpl) FindPublished(category string, limit, offset int) ([]models.Session, int64, error) {
	var sessions []models.Session

	query := r.db.Model(&models.Session{}).
		Where("published = ? AND parent_id IS NULL", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Children", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Order("created_at DESC").Limit(limit).Offset(offset).Find(&sessions).Error

	return sessions, total, err
}

func (r *SessionRepositoryImpl) Create(session *models.Session) error {
	return r.db.Create(session).Error
}

func (r *SessionRepositoryImpl) Update(session *models.Session) error {
	result := r.db.Model(session).Updates(map[string]interface{}{
		"title":          session.Title,
		"description":    session.Description,
		"category":       session.Category,
		"price":          session.Price,
		"currency":       session.Currency,
		"required_tier":  session.RequiredTier,
		"is_free_sample": session.IsFreeSample,
		"published":      session.Published,
		"duration_min":   session.DurationMin,
		"media_urls":     session.MediaURLs,
		"parent_id":      session.ParentID,
		"position":       session.Position,
	})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepositoryImpl) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Detach children first so a deleted collection leaves orphans as
		// top-level items rather than dangling references.
		if err := tx.Model(&models.Session{}).Where("parent_id = ?", id).
			Update("parent_id", nil).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Session{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrSessionNotFound
		}
		return nil
	})
}

func (r *SessionRepositoryImpl) CountChildren(parentID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Session{}).Where("parent_id = ?", parentID).Count(&count).Error
	return count, err
}
