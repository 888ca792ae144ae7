package dto

import (
	"encoding/json"
	"time"

	"stillpoint_backend/internal/models"
)

type CreateBookingRequest struct {
	SessionID   string                 `json:"session_id" validate:"required,uuid"`
	Email       string                 `json:"email" validate:"required,email"`
	Name        string                 `json:"name" validate:"required,max=100"`
	ScheduledAt time.Time              `json:"scheduled_at" validate:"required"`
	Notes       map[string]interface{} `json:"notes"`
}

type UpdateBookingStatusRequest struct {
	Status models.BookingStatus `json:"status" validate:"required,is-booking-status"`
}

type BookingDTO struct {
	ID          string                 `json:"id"`
	SessionID   string                 `json:"session_id"`
	Email       string                 `json:"email"`
	Name        string                 `json:"name"`
	ScheduledAt time.Time              `json:"scheduled_at"`
	Status      models.BookingStatus   `json:"status"`
	Notes       map[string]interface{} `json:"notes,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

type BookingListResponse struct {
	Bookings []BookingDTO `json:"bookings"`
	Meta     ListMeta     `json:"meta"`
}

func NewBookingDTO(b *models.SessionBooking) BookingDTO {
	d := BookingDTO{
		ID:          b.ID,
		SessionID:   b.SessionID,
		Email:       b.Email,
		Name:        b.Name,
		ScheduledAt: b.ScheduledAt,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
	}
	if len(b.Notes) > 0 {
		_ = json.Unmarshal(b.Notes, &d.Notes)
	}
	return d
}
