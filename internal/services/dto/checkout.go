package dto

import (
	"time"

	"stillpoint_backend/internal/models"
)

// CheckoutRequest names the session to buy. Purchaser identity is filled in
// from the authenticated token, never taken from the body.
type CheckoutRequest struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	Email     string `json:"-"`
	Name      string `json:"-"`
}

// CheckoutResponse returns the hosted payment page the client must redirect
// to.
type CheckoutResponse struct {
	CheckoutSessionID string `json:"checkout_session_id"`
	URL               string `json:"url"`
}

type PurchaseDTO struct {
	ID            string                `json:"id"`
	SessionID     string                `json:"session_id"`
	Email         string                `json:"email"`
	Amount        float64               `json:"amount"`
	Currency      string                `json:"currency"`
	NetAmount     float64               `json:"net_amount,omitempty"`
	Status        models.PurchaseStatus `json:"status"`
	AccessGranted bool                  `json:"access_granted"`
	FailureReason string                `json:"failure_reason,omitempty"`
	PaidAt        *time.Time            `json:"paid_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

type PurchaseListResponse struct {
	Purchases []PurchaseDTO `json:"purchases"`
	Meta      ListMeta      `json:"meta"`
}

func NewPurchaseDTO(p *models.Purchase) PurchaseDTO {
	return PurchaseDTO{
		ID:            p.ID,
		SessionID:     p.SessionID,
		Email:         p.Email,
		Amount:        p.Amount,
		Currency:      p.Currency,
		NetAmount:     p.NetAmount,
		Status:        p.Status,
		AccessGranted: p.AccessGranted,
		FailureReason: p.FailureReason,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}

// AccessResponse is the entitlement check result. MediaURLs is only filled
// when access is granted.
type AccessResponse struct {
	SessionID string            `json:"session_id"`
	Access    bool              `json:"access"`
	Reason    string            `json:"reason"`
	MediaURLs map[string]string `json:"media_urls,omitempty"`
}

// MediaURLResponse is one playable link, signed when the media lives in the
// object store.
type MediaURLResponse struct {
	SessionID string `json:"session_id"`
	Language  string `json:"language"`
	URL       string `json:"url"`
}
