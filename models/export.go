package models

import (
	"time"

	"gorm.io/gorm"
)

// Export targets
const (
	ExportTargetSharePoint = "sharepoint"
	ExportTargetConfluence = "confluence"
)

// Export job statuses
const (
	ExportStatusPending   = "pending"
	ExportStatusRunning   = "running"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// ExportJob tracks the delivery of a document to an enterprise system.
// Jobs are picked up asynchronously by the export worker.
type ExportJob struct {
	gorm.Model
	DocumentID  uint  `gorm:"not null;index" json:"document_id"`
	RequestedBy uint  `gorm:"not null" json:"requested_by"`
	TeamID      *uint `gorm:"index" json:"team_id,omitempty"`

	Target string `gorm:"not null" json:"target"` // sharepoint, confluence

	// Destination settings
	SiteURL  string `gorm:"not null" json:"site_url"`
	SpaceKey string `json:"space_key,omitempty"` // Confluence space / SharePoint library

	// Destination access token, AES-encrypted at rest
	AccessTokenEnc string `json:"-"`

	Status      string     `gorm:"default:'pending';index" json:"status"`
	Attempts    int        `gorm:"default:0" json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	ExternalURL string     `json:"external_url,omitempty"` // page URL reported by the target
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Relations
	Document Document `json:"-"`
}
