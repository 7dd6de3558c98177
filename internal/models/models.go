package models

import (
	"time"
)

// Product is a fixed catalog entry that releases are published for.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"slug"` // External key in URLs and APIs
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"not null;default:current_timestamp" json:"created_at"`
	Releases    []Release `gorm:"foreignKey:ProductID" json:"-"` // Has many relationship
}

// Release is a published version of a product.
type Release struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProductID   uint      `gorm:"not null;uniqueIndex:idx_release_product_version" json:"product_id"`
	Version     string    `gorm:"type:varchar(32);not null;uniqueIndex:idx_release_product_version" json:"version"` // x.y.z
	ReleaseDate Date      `gorm:"not null" json:"release_date"`
	CreatedAt   time.Time `gorm:"not null;default:current_timestamp" json:"created_at"`
	Features    []Feature `gorm:"foreignKey:ReleaseID" json:"features"` // Deleted by the application, not by the FK
}

// Feature is a single described change bundled in a release.
type Feature struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReleaseID uint      `gorm:"not null;index" json:"release_id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Content   *string   `gorm:"type:text" json:"content"` // Sanitized HTML, nil when absent
	CreatedAt time.Time `gorm:"not null;default:current_timestamp" json:"created_at"`
}
