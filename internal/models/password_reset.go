package models

import "time"

// PasswordResetToken is a one-time reset credential. Tokens expire after 15
// minutes and are marked used on a successful reset; a second redemption
// fails. Expired and used rows are swept by the cleanup worker.
type PasswordResetToken struct {
	BaseModel
	Email     string    `gorm:"not null;index" json:"email"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"default:false" json:"used"`
}

// PasswordResetTTL is the validity window for reset tokens.
const PasswordResetTTL = 15 * time.Minute
