package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deal team tiers, ordered by seniority. Used only for staffing fallback
// resolution, never compared directly outside a declared ladder.
const (
	Tier2   = "tier2"
	Tier4   = "tier4"
	Tier6   = "tier6"
	Tier8   = "tier8"
	Tier10  = "tier10"
	Floater = "floater"
)

type User struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string         `json:"email" gorm:"uniqueIndex;not null"`
	Password     string         `json:"-"`
	Name         string         `json:"name"`
	DisplayName  string         `json:"displayName"`
	DealTeamTier string         `json:"dealTeamTier" gorm:"not null;default:'tier2'"` // tier2, tier4, tier6, tier8, tier10, floater
	Tags         string         `json:"tags"`                                         // comma-separated capability tags
	IsActive     bool           `json:"isActive" gorm:"default:true"`
	FCMToken     string         `json:"-" gorm:"column:fcm_token"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// TagList splits the stored capability tags, dropping empty entries.
func (u *User) TagList() []string {
	if u.Tags == "" {
		return nil
	}
	parts := strings.Split(u.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Auth DTOs
type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	Name         string `json:"name"`
	DealTeamTier string `json:"dealTeamTier"`
	Tags         string `json:"tags"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	DisplayName  *string `json:"displayName"`
	Name         *string `json:"name"`
	DealTeamTier *string `json:"dealTeamTier"`
	Tags         *string `json:"tags"`
	IsActive     *bool   `json:"isActive"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
