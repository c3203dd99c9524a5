package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user account in the system
type User struct {
	gorm.Model

	// Public identity handed to clients (the SPA persists this as `uid`)
	UID string `gorm:"uniqueIndex;not null" json:"uid"`

	// Authentication fields
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash  string `gorm:"not null" json:"-"`
	EmailVerified bool   `gorm:"default:false" json:"email_verified"`
	TokenVersion  int    `gorm:"default:1" json:"-"`

	// Google OAuth fields
	GoogleID       *string `gorm:"uniqueIndex" json:"google_id,omitempty"`
	GoogleImageURL *string `json:"google_image_url,omitempty"`

	// Profile information
	Name      *string `json:"name,omitempty"`
	Company   *string `json:"company,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Timezone  string  `gorm:"default:'UTC'" json:"timezone"`
	Language  string  `gorm:"default:'en'" json:"language"`

	// The project the user last worked in, surfaced to the SPA on login
	ProjectID string `gorm:"default:''" json:"projectId"`

	// Account status
	IsActive bool `gorm:"default:true" json:"is_active"`
	IsAdmin  bool `gorm:"default:false" json:"is_admin"`

	LastLoginAt *time.Time `json:"lastLoginTime,omitempty"`

	// Relations
	Memberships []TeamMember `gorm:"foreignKey:UserID" json:"memberships,omitempty"`
	Projects    []Project    `gorm:"foreignKey:OwnerID" json:"projects,omitempty"`
}

// RefreshToken tracks issued refresh tokens per session so they can be
// rotated and revoked
type RefreshToken struct {
	gorm.Model
	UserID    uint   `gorm:"not null;index" json:"user_id"`
	SessionID string `gorm:"not null;index" json:"session_id"`
	Token     string `gorm:"uniqueIndex;not null" json:"-"`

	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address"`

	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	IsRevoked bool      `gorm:"default:false" json:"is_revoked"`

	// Relations
	User User `json:"-"`
}
