package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PodMember is one seat on a pod. Position 1 is always the lead, and
// exactly one member of an active pod carries IsLead.
type PodMember struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	PodID        uuid.UUID      `json:"podId" gorm:"type:uuid;index;not null"`
	UserID       uuid.UUID      `json:"userId" gorm:"type:uuid;index;not null"`
	Position     int            `json:"position" gorm:"not null"`
	Role         string         `json:"role" gorm:"not null"`
	DealTeamTier string         `json:"dealTeamTier"`
	RequiredTags string         `json:"requiredTags"` // comma-separated, audit
	MatchedTags  string         `json:"matchedTags"`  // comma-separated, audit
	Rationale    string         `json:"rationale"`
	IsLead       bool           `json:"isLead" gorm:"default:false"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (pm *PodMember) BeforeCreate(tx *gorm.DB) error {
	if pm.ID == uuid.Nil {
		pm.ID = uuid.New()
	}
	return nil
}
