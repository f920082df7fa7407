package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// PodMovementTask is a role-owned deliverable under a milestone.
type PodMovementTask struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	MilestoneID      uuid.UUID      `json:"milestoneId" gorm:"type:uuid;index;not null"`
	DealID           uuid.UUID      `json:"dealId" gorm:"type:uuid;index;not null"`
	Role             string         `json:"role" gorm:"not null"`
	AssigneeID       *uuid.UUID     `json:"assigneeId" gorm:"type:uuid;index"`
	DefinitionOfDone string         `json:"definitionOfDone"`
	Status           string         `json:"status" gorm:"not null;default:'pending'"` // pending, in_progress, done
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

func (t *PodMovementTask) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
