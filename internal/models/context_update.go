package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContextUpdate is the audit trail for a deal: one row per pod formation,
// stage transition, or reoptimization pass.
type ContextUpdate struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	DealID    uuid.UUID      `json:"dealId" gorm:"type:uuid;index;not null"`
	Kind      string         `json:"kind" gorm:"not null"` // pod_formed, stage_advanced, reoptimization
	Summary   string         `json:"summary"`
	Metadata  *string        `json:"metadata"` // JSON string for extra context
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (cu *ContextUpdate) BeforeCreate(tx *gorm.DB) error {
	if cu.ID == uuid.Nil {
		cu.ID = uuid.New()
	}
	return nil
}
