package dto

import (
	"time"

	"stillpoint_backend/internal/models"
)

type CreatePostRequest struct {
	Slug          string `json:"slug" validate:"required,max=200"`
	Title         string `json:"title" validate:"required,max=200"`
	Excerpt       string `json:"excerpt" validate:"omitempty,max=500"`
	Body          string `json:"body" validate:"required"`
	CoverImageURL string `json:"cover_image_url" validate:"omitempty,url"`
	Published     bool   `json:"published"`
}

type UpdatePostRequest struct {
	Slug          *string `json:"slug" validate:"omitempty,max=200"`
	Title         *string `json:"title" validate:"omitempty,max=200"`
	Excerpt       *string `json:"excerpt" validate:"omitempty,max=500"`
	Body          *string `json:"body"`
	CoverImageURL *string `json:"cover_image_url" validate:"omitempty,url"`
	Published     *bool   `json:"published"`
}

type PostDTO struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Title         string    `json:"title"`
	Excerpt       string    `json:"excerpt"`
	Body          string    `json:"body,omitempty"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	Published     bool      `json:"published"`
	AuthorEmail   string    `json:"author_email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type PostListResponse struct {
	Posts []PostDTO `json:"posts"`
	Meta  ListMeta  `json:"meta"`
}

// NewPostDTO builds the full post view. Listing endpoints strip the body by
// passing includeBody=false to keep payloads small.
func NewPostDTO(p *models.Post, includeBody bool) PostDTO {
	d := PostDTO{
		ID:            p.ID,
		Slug:          p.Slug,
		Title:         p.Title,
		Excerpt:       p.Excerpt,
		CoverImageURL: p.CoverImageURL,
		Published:     p.Published,
		AuthorEmail:   p.AuthorEmail,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if includeBody {
		d.Body = p.Body
	}
	return d
}
