package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PodStatusActive    = "active"
	PodStatusCompleted = "completed"
)

// Pod is the team staffed onto one deal for one stage. At most one active
// pod exists per deal; the coordinator owns that invariant.
type Pod struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	DealID     uuid.UUID      `json:"dealId" gorm:"type:uuid;index;not null"`
	Stage      string         `json:"stage" gorm:"not null"`
	Size       int            `json:"size" gorm:"not null"` // 3 or 5, policy-derived
	Status     string         `json:"status" gorm:"not null;default:'active'"` // active, completed
	LeadUserID uuid.UUID      `json:"leadUserId" gorm:"type:uuid;not null"`
	Rationale  string         `json:"rationale"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	Members []PodMember `json:"members,omitempty" gorm:"foreignKey:PodID"`
}

func (p *Pod) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
