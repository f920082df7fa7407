package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deal stages, in order. Stage is only ever written by the stage
// transition coordinator.
const (
	StageOrigination = "origination"
	StageStructuring = "structuring"
	StageDiligence   = "diligence"
	StageNegotiation = "negotiation"
	StageClosing     = "closing"
	StageIntegration = "integration"
)

const (
	DealStatusActive = "active"
	DealStatusOnHold = "on_hold"
	DealStatusClosed = "closed"
)

type Deal struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string         `json:"name" gorm:"not null"`
	Sector    string         `json:"sector"`
	ValueUSD  int64          `json:"valueUsd" gorm:"not null"`
	Stage     string         `json:"stage" gorm:"not null;default:'origination'"`
	Status    string         `json:"status" gorm:"not null;default:'active'"` // active, on_hold, closed
	Priority  string         `json:"priority" gorm:"default:'medium'"`        // low, medium, high
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Pods []Pod `json:"pods,omitempty" gorm:"foreignKey:DealID"`
}

func (d *Deal) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type CreateDealRequest struct {
	Name     string `json:"name" validate:"required"`
	Sector   string `json:"sector"`
	ValueUSD int64  `json:"valueUsd" validate:"required"`
	Priority string `json:"priority"`
}

type UpdateDealRequest struct {
	Name     *string `json:"name"`
	Sector   *string `json:"sector"`
	ValueUSD *int64  `json:"valueUsd"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
}

type TransitionRequest struct {
	Stage string `json:"stage" validate:"required"`
}
