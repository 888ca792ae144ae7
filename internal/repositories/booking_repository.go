package repositories

import (
	"errors"

	"stillpoint_backend/internal/models"

	"gorm.io/gorm"
)

var ErrBookingNotFound = errors.New("booking not found")

type BookingRepository interface {
	FindByID(id string) (*models.SessionBooking, error)
	Create(booking *models.SessionBooking) error
	UpdateStatus(id string, status models.BookingStatus) error
	ListByEmail(email string) ([]models.SessionBooking, error)
	ListAll(limit, offset int) ([]models.SessionBooking, int64, error)
}

type BookingRepositoryImpl struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &BookingRepositoryImpl{db: db}
}

func (r *BookingRepositoryImpl) FindByID(id string) (*models.SessionBooking, error) {
	var booking models.SessionBooking
	err := r.db.First(&booking, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepositoryImpl) Create(booking *models.SessionBooking) error {
	return r.db.Create(booking).Error
}

func (r *BookingRepositoryImpl) UpdateStatus(id string, status models.BookingStatus) error {
	result := r.db.Model(&models.SessionBooking{}).
		Where("id = ?", id).
		Update("status", status)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepositoryImpl) ListByEmail(email string) ([]models.SessionBooking, error) {
	var bookings []models.SessionBooking
	err := r.db.Where("email = ?", email).Order("scheduled_at DESC").Find(&bookings).Error
	return bookings, err
}

func (r *BookingRepositoryImpl) ListAll(limit, offset int) ([]models.SessionBooking, int64, error) {
	var bookings []models.SessionBooking

	var total int64
	if err := r.db.Model(&models.SessionBooking{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("scheduled_at DESC").Limit(limit).Offset(offset).Find(&bookings).Error
	return bookings, total, err
}
