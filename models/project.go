package models

import "gorm.io/gorm"

// Project statuses
const (
	ProjectStatusPlanning  = "planning"
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusArchived  = "archived"
)

// Project is a strategic planning initiative owned by a user and shared
// with a team
type Project struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Status      string `gorm:"default:'planning'" json:"status"`

	OwnerID uint  `gorm:"not null;index" json:"owner_id"`
	TeamID  *uint `gorm:"index" json:"team_id,omitempty"`

	// Relations
	Documents []Document `gorm:"foreignKey:ProjectID" json:"documents,omitempty"`
	Diagrams  []Diagram  `gorm:"foreignKey:ProjectID" json:"diagrams,omitempty"`
}

// Document formats
const (
	DocumentFormatMarkdown = "markdown"
	DocumentFormatHTML     = "html"
)

// Document is a planning artifact: a PRD, roadmap, risk register and the
// like, either written by hand or produced by a generation model
type Document struct {
	gorm.Model
	ProjectID uint   `gorm:"not null;index" json:"project_id"`
	AuthorID  uint   `gorm:"not null" json:"author_id"`
	Title     string `gorm:"not null" json:"title"`
	Kind      string `json:"kind"` // prd, roadmap, risk_register, summary
	Format    string `gorm:"default:'markdown'" json:"format"`
	Content   string `gorm:"type:text" json:"content"`

	// Name of the open-source model that generated the content, empty for
	// hand-written documents
	GeneratedBy string `json:"generated_by,omitempty"`
}

// Diagram is a rendered visualization attached to a project
type Diagram struct {
	gorm.Model
	ProjectID uint   `gorm:"not null;index" json:"project_id"`
	AuthorID  uint   `gorm:"not null" json:"author_id"`
	Title     string `gorm:"not null" json:"title"`
	Kind      string `json:"kind"` // gantt, flowchart, org_chart
	Source    string `gorm:"type:text" json:"source"`
}
