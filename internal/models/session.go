package models

import (
	"gorm.io/datatypes"
)

// Session is a purchasable unit of content: either a standalone item or a
// collection (parent) holding ordered child items. MediaURLs maps a language
// code to the media location ({"en": "...", "ar": "..."}).
//
// Hierarchy invariant: an item with children has no parent, and a child never
// carries children of its own. Enforced centrally by the catalog service on
// every write path, not at individual call sites.
type Session struct {
	BaseModel
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `json:"description"`
	Category     string         `gorm:"index" json:"category"`
	Price        float64        `gorm:"not null;default:0" json:"price"`
	Currency     string         `gorm:"type:varchar(3);default:'AED'" json:"currency"`
	RequiredTier string         `gorm:"type:varchar(20);default:'free'" json:"required_tier"`
	IsFreeSample bool           `gorm:"default:false" json:"is_free_sample"`
	Published    bool           `gorm:"default:false;index" json:"published"`
	DurationMin  int            `json:"duration_min"`
	MediaURLs    datatypes.JSON `gorm:"type:jsonb" json:"media_urls"`

	ParentID *string   `gorm:"type:uuid;index" json:"parent_id"`
	Position int       `gorm:"default:0" json:"position"` // ordering within a collection
	Children []Session `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

// IsCollection reports whether the session is a parent bundle.
func (s *Session) IsCollection() bool {
	return len(s.Children) > 0
}

// IsFree reports whether the session is accessible without a purchase.
func (s *Session) IsFree() bool {
	return s.Price == 0 || s.IsFreeSample
}
