package models

import (
	"strings"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type ClothingItem struct {
	JsonModel
	OwnerID  uint           `gorm:"index;not null" json:"-"`
	Owner    UserAccount    `json:"-"`
	Name     string         `gorm:"not null" json:"name"`
	Category Category       `gorm:"index;not null" json:"category"`
	Color    string         `gorm:"index;not null" json:"color"`
	Size     *string        `json:"size"`
	Brand    *string        `json:"brand"`
	Notes    *string        `gorm:"type:text" json:"notes"`
	Pattern  string         `gorm:"default:None" json:"pattern"`
	Material string         `json:"material,omitempty"`
	Style    string         `json:"style,omitempty"`
	Fit      string         `json:"fit,omitempty"`
	Season   pq.StringArray `gorm:"type:text[]" json:"season"`
	Occasion pq.StringArray `gorm:"type:text[]" json:"occasion"`
	Gender   string         `json:"gender,omitempty"`
	Features pq.StringArray `gorm:"type:text[]" json:"features"`

	// inline data URL submitted with JSON bodies
	Image *string `gorm:"type:text" json:"-"`
	// R2 object key for multipart uploads
	ImageKey *string `json:"-"`
	// resolved per response, never stored
	ImageURL string `gorm:"-" json:"image_url"`

	AnalysisStatus       string         `gorm:"default:idle" json:"analysis_status"` // idle, pending, completed, failed
	AnalysisRetryTimes   int            `json:"-"`
	AnalysisErrorMessage *string        `json:"-"`
	Analysis             datatypes.JSON `gorm:"type:jsonb" json:"-"`
}

func (item ClothingItem) HasImage() bool {
	return (item.Image != nil && *item.Image != "") || (item.ImageKey != nil && *item.ImageKey != "")
}

func (item ClothingItem) BrandOr(fallback string) string {
	if item.Brand == nil || strings.TrimSpace(*item.Brand) == "" {
		return fallback
	}
	return *item.Brand
}

func (item ClothingItem) SizeOr(fallback string) string {
	if item.Size == nil || strings.TrimSpace(*item.Size) == "" {
		return fallback
	}
	return *item.Size
}

// ClothingItemDetail is the short form of an item attached to outfit suggestions.
type ClothingItemDetail struct {
	ID       uint     `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Color    string   `json:"color"`
	Brand    *string  `json:"brand"`
	ImageURL string   `json:"image_url"`
	Size     *string  `json:"size"`
}

func (item ClothingItem) Detail() ClothingItemDetail {
	return ClothingItemDetail{
		ID:       item.ID,
		Name:     item.Name,
		Category: item.Category,
		Color:    item.Color,
		Brand:    item.Brand,
		ImageURL: item.ImageURL,
		Size:     item.Size,
	}
}
