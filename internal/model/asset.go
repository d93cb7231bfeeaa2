package model

import (
	"path"
	"time"
)

// Asset is a stored file plus its catalog metadata. FilePath is the key of the
// file inside the configured store, not a filesystem path.
type Asset struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:255;not null;index" json:"name"`
	Description   string     `gorm:"type:text" json:"description,omitempty"`
	FilePath      string     `gorm:"size:512;not null;index" json:"file_path"`
	OriginalName  string     `gorm:"size:255" json:"original_name"`
	FileType      string     `gorm:"size:32" json:"file_type"`
	MimeType      string     `gorm:"size:128" json:"mime_type"`
	Size          int64      `gorm:"not null" json:"size"`
	SerialNumber  string     `gorm:"size:128" json:"serial_number,omitempty"`
	PurchasePrice *float64   `gorm:"type:decimal(10,2)" json:"purchase_price,omitempty"`
	PurchaseDate  *time.Time `json:"purchase_date,omitempty"`
	Location      string     `gorm:"size:255" json:"location,omitempty"`
	ImageWidth    int        `json:"image_width,omitempty"`
	ImageHeight   int        `json:"image_height,omitempty"`
	PageCount     int        `json:"page_count,omitempty"`
	ThumbnailPath string     `gorm:"size:512;index" json:"thumbnail_path,omitempty"`
	IsActive      bool       `gorm:"not null;default:true" json:"is_active"`

	OwnerID    uint      `gorm:"not null;index" json:"owner_id"`
	Owner      User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner"`
	CategoryID *uint     `gorm:"index" json:"category_id,omitempty"`
	Category   *Category `gorm:"constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Tags       []Tag     `gorm:"many2many:asset_tags" json:"tags"`

	URL          string `gorm:"-" json:"url,omitempty"`
	ThumbnailURL string `gorm:"-" json:"thumbnail_url,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WithPublicURLs fills the computed URL fields under the given public prefix.
func (a *Asset) WithPublicURLs(publicPath string) {
	if publicPath == "" {
		return
	}
	if a.FilePath != "" {
		a.URL = path.Join(publicPath, a.FilePath)
	}
	if a.ThumbnailPath != "" {
		a.ThumbnailURL = path.Join(publicPath, a.ThumbnailPath)
	}
}
