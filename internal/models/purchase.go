package models

import "time"

// Purchase is one entry in the payment ledger. Rows are append-mostly:
// created pending when checkout begins (or completed directly from a
// webhook), updated by the reconciler, never deleted.
//
// Email is a weak reference to the purchaser, not a foreign key; if a user
// ever changes their email the historical rows stay behind. Accepted
// limitation.
//
// CheckoutSessionID and PaymentIntentID carry unique indexes so that
// duplicate webhook deliveries collapse onto a single row via
// insert-on-conflict, without a separate existence check.
type Purchase struct {
	BaseModel
	SessionID string  `gorm:"type:uuid;not null;index" json:"session_id"`
	Email     string  `gorm:"not null;index" json:"email"`
	Amount    float64 `gorm:"not null" json:"amount"`
	Currency  string  `gorm:"type:varchar(3);not null" json:"currency"`
	// NetAmount is the amount after the processor fee, filled in on
	// completion.
	NetAmount float64 `json:"net_amount"`

	Status        PurchaseStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	AccessGranted bool           `gorm:"default:false" json:"access_granted"`
	FailureReason string         `json:"failure_reason,omitempty"`

	CheckoutSessionID string  `gorm:"uniqueIndex;not null" json:"checkout_session_id"`
	PaymentIntentID   *string `gorm:"uniqueIndex" json:"payment_intent_id,omitempty"`

	PaidAt *time.Time `json:"paid_at,omitempty"`
}
