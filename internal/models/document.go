package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is uploaded deal material. Excerpt is the slice of text fed to
// the plan generator as context.
type Document struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	DealID     uuid.UUID      `json:"dealId" gorm:"type:uuid;index;not null"`
	UploadedBy uuid.UUID      `json:"uploadedBy" gorm:"type:uuid;not null"`
	FileName   string         `json:"fileName" gorm:"not null"`
	URL        string         `json:"url"`
	Excerpt    string         `json:"excerpt"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
