package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Milestone struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	DealID      uuid.UUID      `json:"dealId" gorm:"type:uuid;index;not null"`
	PodID       uuid.UUID      `json:"podId" gorm:"type:uuid;index;not null"`
	Stage       string         `json:"stage" gorm:"not null"`
	Title       string         `json:"title" gorm:"not null"`
	OrderIndex  int            `json:"orderIndex" gorm:"not null"`
	IsComplete  bool           `json:"isComplete" gorm:"default:false"`
	CompletedAt *time.Time     `json:"completedAt"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	MovementTasks []PodMovementTask `json:"movementTasks,omitempty" gorm:"foreignKey:MilestoneID"`
}

func (m *Milestone) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
