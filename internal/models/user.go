package models

import "time"

type User struct {
	BaseModel
	Email        string       `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName  string       `gorm:"not null" json:"display_name"`
	PasswordHash string       `json:"-"` // empty for OAuth-only accounts
	Provider     AuthProvider `gorm:"type:varchar(20);default:'credentials'" json:"provider"`
	Role         UserRole     `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	IsVerified   bool         `gorm:"default:false" json:"is_verified"`

	VerificationToken string `json:"-"`

	// Relations
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
}

type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"not null;index" json:"user_id"`
	Token     string    `gorm:"not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}
