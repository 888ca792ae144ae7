package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionBooking is a scheduled one-on-one appointment, distinct from a
// Purchase. Same denormalized-by-email pattern as the ledger.
type SessionBooking struct {
	BaseModel
	SessionID   string         `gorm:"type:uuid;not null;index" json:"session_id"`
	Email       string         `gorm:"not null;index" json:"email"`
	Name        string         `json:"name"`
	ScheduledAt time.Time      `gorm:"not null" json:"scheduled_at"`
	Status      BookingStatus  `gorm:"type:varchar(20);not null;default:'requested'" json:"status"`
	Notes       datatypes.JSON `gorm:"type:jsonb" json:"notes,omitempty"`
}
