package dto

import (
	"encoding/json"
	"time"

	"stillpoint_backend/internal/models"
)

type SessionListQuery struct {
	PaginationQuery
	Category string `form:"category" validate:"omitempty,max=50"`
}

type CreateSessionRequest struct {
	Title        string            `json:"title" validate:"required,max=200"`
	Description  string            `json:"description"`
	Category     string            `json:"category" validate:"omitempty,max=50"`
	Price        float64           `json:"price" validate:"gte=0"`
	Currency     string            `json:"currency" validate:"omitempty,len=3"`
	RequiredTier string            `json:"required_tier" validate:"omitempty,oneof=free paid"`
	IsFreeSample bool              `json:"is_free_sample"`
	Published    bool              `json:"published"`
	DurationMin  int               `json:"duration_min" validate:"gte=0"`
	MediaURLs    map[string]string `json:"media_urls"`
	ParentID     *string           `json:"parent_id" validate:"omitempty,uuid"`
	Position     int               `json:"position" validate:"gte=0"`
}

type UpdateSessionRequest struct {
	Title        *string            `json:"title" validate:"omitempty,max=200"`
	Description  *string            `json:"description"`
	Category     *string            `json:"category" validate:"omitempty,max=50"`
	Price        *float64           `json:"price" validate:"omitempty,gte=0"`
	Currency     *string            `json:"currency" validate:"omitempty,len=3"`
	RequiredTier *string            `json:"required_tier" validate:"omitempty,oneof=free paid"`
	IsFreeSample *bool              `json:"is_free_sample"`
	Published    *bool              `json:"published"`
	DurationMin  *int               `json:"duration_min" validate:"omitempty,gte=0"`
	MediaURLs    *map[string]string `json:"media_urls"`
	ParentID     *string            `json:"parent_id" validate:"omitempty,uuid"`
	Position     *int               `json:"position" validate:"omitempty,gte=0"`
}

// SessionDTO is the public catalog view. Media URLs are omitted here; they
// are only handed out by the entitlement endpoint.
type SessionDTO struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Category     string       `json:"category"`
	Price        float64      `json:"price"`
	Currency     string       `json:"currency"`
	RequiredTier string       `json:"required_tier"`
	IsFreeSample bool         `json:"is_free_sample"`
	Published    bool         `json:"published"`
	DurationMin  int          `json:"duration_min"`
	Position     int          `json:"position"`
	ParentID     *string      `json:"parent_id,omitempty"`
	Children     []SessionDTO `json:"children,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// AdminSessionDTO adds the raw media map for the admin editor.
type AdminSessionDTO struct {
	SessionDTO
	MediaURLs map[string]string `json:"media_urls"`
}

type SessionListResponse struct {
	Sessions []SessionDTO `json:"sessions"`
	Meta     ListMeta     `json:"meta"`
}

func NewSessionDTO(s *models.Session) SessionDTO {
	d := SessionDTO{
		ID:           s.ID,
		Title:        s.Title,
		Description:  s.Description,
		Category:     s.Category,
		Price:        s.Price,
		Currency:     s.Currency,
		RequiredTier: s.RequiredTier,
		IsFreeSample: s.IsFreeSample,
		Published:    s.Published,
		DurationMin:  s.DurationMin,
		Position:     s.Position,
		ParentID:     s.ParentID,
		CreatedAt:    s.CreatedAt,
	}
	for i := range s.Children {
		d.Children = append(d.Children, NewSessionDTO(&s.Children[i]))
	}
	return d
}

func NewAdminSessionDTO(s *models.Session) AdminSessionDTO {
	d := AdminSessionDTO{SessionDTO: NewSessionDTO(s)}
	if len(s.MediaURLs) > 0 {
		_ = json.Unmarshal(s.MediaURLs, &d.MediaURLs)
	}
	return d
}
