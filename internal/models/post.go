package models

// Post is a blog entry managed through the admin editor.
type Post struct {
	BaseModel
	Slug          string `gorm:"uniqueIndex;not null" json:"slug"`
	Title         string `gorm:"not null" json:"title"`
	Excerpt       string `json:"excerpt"`
	Body          string `gorm:"type:text" json:"body"`
	CoverImageURL string `json:"cover_image_url"`
	Published     bool   `gorm:"default:false;index" json:"published"`
	AuthorEmail   string `json:"author_email"`
}
