package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CadenceDaily   = "daily"
	CadenceWeekly  = "weekly"
	CadenceMonthly = "monthly"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// NormalizePriority clamps an untrusted priority label to the known set.
func NormalizePriority(p string) string {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p
	default:
		return PriorityMedium
	}
}

// NormalizeCadence clamps an untrusted cadence label to the known set.
func NormalizeCadence(c string) string {
	switch c {
	case CadenceDaily, CadenceWeekly, CadenceMonthly:
		return c
	default:
		return CadenceDaily
	}
}

// Task is the atomic assignable unit of work on a deal.
type Task struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	DealID            uuid.UUID      `json:"dealId" gorm:"type:uuid;index;not null"`
	PodMovementTaskID *uuid.UUID     `json:"podMovementTaskId" gorm:"type:uuid;index"`
	Title             string         `json:"title" gorm:"not null"`
	Priority          string         `json:"priority" gorm:"default:'medium'"` // low, medium, high
	Cadence           string         `json:"cadence" gorm:"default:'daily'"`   // daily, weekly, monthly
	DueDate           *time.Time     `json:"dueDate"`
	AssigneeID        *uuid.UUID     `json:"assigneeId" gorm:"type:uuid;index"`
	Status            string         `json:"status" gorm:"not null;default:'pending'"` // pending, in_progress, done
	CompletedAt       *time.Time     `json:"completedAt"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type CreateTaskRequest struct {
	Title      string     `json:"title" validate:"required"`
	Priority   string     `json:"priority"`
	Cadence    string     `json:"cadence"`
	DueDate    *time.Time `json:"dueDate"`
	AssigneeID *uuid.UUID `json:"assigneeId"`
}

type ReassignTaskRequest struct {
	AssigneeID uuid.UUID `json:"assigneeId" validate:"required"`
}
