package models

import (
	"time"

	"gorm.io/gorm"
)

// Team roles, ordered from most to least privileged
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Team member statuses. Only active members count for permission checks.
const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
	MemberStatusRemoved  = "removed"
)

// Invitation statuses
const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusRevoked  = "revoked"
	InvitationStatusExpired  = "expired"
)

// Permission actions gate everything the SPA can do inside a team.
// The names double as the JSON field names of TeamPermissions.
const (
	ActionCreateProjects     = "can_create_projects"
	ActionEditProjects       = "can_edit_projects"
	ActionDeleteProjects     = "can_delete_projects"
	ActionInviteMembers      = "can_invite_members"
	ActionManageMembers      = "can_manage_members"
	ActionManageTeamSettings = "can_manage_team_settings"
	ActionExportDocuments    = "can_export_documents"
	ActionGenerateDocuments  = "can_generate_documents"
)

// TeamPermissions is the fixed record of boolean capabilities a member holds
type TeamPermissions struct {
	CanCreateProjects     bool `json:"can_create_projects"`
	CanEditProjects       bool `json:"can_edit_projects"`
	CanDeleteProjects     bool `json:"can_delete_projects"`
	CanInviteMembers      bool `json:"can_invite_members"`
	CanManageMembers      bool `json:"can_manage_members"`
	CanManageTeamSettings bool `json:"can_manage_team_settings"`
	CanExportDocuments    bool `json:"can_export_documents"`
	CanGenerateDocuments  bool `json:"can_generate_documents"`
}

// Allows reports whether the record grants the named action. Unknown
// actions are denied.
func (p TeamPermissions) Allows(action string) bool {
	switch action {
	case ActionCreateProjects:
		return p.CanCreateProjects
	case ActionEditProjects:
		return p.CanEditProjects
	case ActionDeleteProjects:
		return p.CanDeleteProjects
	case ActionInviteMembers:
		return p.CanInviteMembers
	case ActionManageMembers:
		return p.CanManageMembers
	case ActionManageTeamSettings:
		return p.CanManageTeamSettings
	case ActionExportDocuments:
		return p.CanExportDocuments
	case ActionGenerateDocuments:
		return p.CanGenerateDocuments
	}
	return false
}

// defaultPermissions maps each role to its default capability set.
// Never mutated at runtime; read through DefaultPermissionsFor.
var defaultPermissions = map[string]TeamPermissions{
	RoleOwner: {
		CanCreateProjects:     true,
		CanEditProjects:       true,
		CanDeleteProjects:     true,
		CanInviteMembers:      true,
		CanManageMembers:      true,
		CanManageTeamSettings: true,
		CanExportDocuments:    true,
		CanGenerateDocuments:  true,
	},
	RoleAdmin: {
		CanCreateProjects:    true,
		CanEditProjects:      true,
		CanDeleteProjects:    true,
		CanInviteMembers:     true,
		CanManageMembers:     true,
		CanExportDocuments:   true,
		CanGenerateDocuments: true,
	},
	RoleMember: {
		CanCreateProjects:    true,
		CanEditProjects:      true,
		CanExportDocuments:   true,
		CanGenerateDocuments: true,
	},
	RoleViewer: {
		CanExportDocuments: true,
	},
}

// DefaultPermissionsFor returns a copy of the default permission set for the
// role. Unknown roles get the zero set (everything denied).
func DefaultPermissionsFor(role string) TeamPermissions {
	return defaultPermissions[role]
}

// Team represents a collaboration space for strategic planning work
type Team struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`

	// Owner identity lives on the team record itself; the owner may not have
	// a row in the membership table
	OwnerID uint `gorm:"not null;index" json:"owner_id"`

	// Relations
	Members     []TeamMember     `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Invitations []TeamInvitation `gorm:"foreignKey:TeamID" json:"invitations,omitempty"`
	Activities  []TeamActivity   `gorm:"foreignKey:TeamID" json:"activities,omitempty"`
}

// TeamMember represents team members and their roles
type TeamMember struct {
	gorm.Model
	TeamID uint `gorm:"not null;index:idx_team_user,unique" json:"team_id"`
	UserID uint `gorm:"not null;index:idx_team_user,unique" json:"user_id"`

	Role   string `gorm:"default:'member'" json:"role"` // owner, admin, member, viewer
	Status string `gorm:"default:'active'" json:"status"`

	// When set, replaces the role's default permission set wholesale.
	// Never merged field by field.
	Permissions *TeamPermissions `gorm:"serializer:json" json:"permissions,omitempty"`

	// Relations
	Team Team `json:"-"`
	User User `json:"-"`
}

// Allows resolves the member's effective permission for an action: the
// explicit override when present, otherwise the role default. Inactive and
// removed members are always denied.
func (m *TeamMember) Allows(action string) bool {
	if m == nil || m.Status != MemberStatusActive {
		return false
	}
	if m.Permissions != nil {
		return m.Permissions.Allows(action)
	}
	return DefaultPermissionsFor(m.Role).Allows(action)
}

// TeamInvitation is a pending offer to join a team
type TeamInvitation struct {
	gorm.Model
	TeamID    uint   `gorm:"not null;index" json:"team_id"`
	InviterID uint   `gorm:"not null" json:"inviter_id"`
	Email     string `gorm:"not null;index" json:"email"`

	Role   string `gorm:"default:'member'" json:"role"`
	Status string `gorm:"default:'pending'" json:"status"`
	Token  string `gorm:"uniqueIndex;not null" json:"-"`

	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`

	// Relations
	Team    Team `json:"-"`
	Inviter User `gorm:"foreignKey:InviterID" json:"-"`
}

// TeamActivity is one entry in a team's bounded activity log
type TeamActivity struct {
	gorm.Model
	TeamID  uint   `gorm:"not null;index" json:"team_id"`
	ActorID uint   `gorm:"index" json:"actor_id"`
	Action  string `gorm:"not null" json:"action"` // member_added, document_exported, ...
	Detail  string `json:"detail"`
}
