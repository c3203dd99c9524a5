package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allActions = []string{
	ActionCreateProjects,
	ActionEditProjects,
	ActionDeleteProjects,
	ActionInviteMembers,
	ActionManageMembers,
	ActionManageTeamSettings,
	ActionExportDocuments,
	ActionGenerateDocuments,
}

func TestDefaultPermissionsMatrix(t *testing.T) {
	tests := []struct {
		role    string
		allowed map[string]bool
	}{
		{
			role: RoleOwner,
			allowed: map[string]bool{
				ActionCreateProjects:     true,
				ActionEditProjects:       true,
				ActionDeleteProjects:     true,
				ActionInviteMembers:      true,
				ActionManageMembers:      true,
				ActionManageTeamSettings: true,
				ActionExportDocuments:    true,
				ActionGenerateDocuments:  true,
			},
		},
		{
			role: RoleAdmin,
			allowed: map[string]bool{
				ActionCreateProjects:     true,
				ActionEditProjects:       true,
				ActionDeleteProjects:     true,
				ActionInviteMembers:      true,
				ActionManageMembers:      true,
				ActionManageTeamSettings: false,
				ActionExportDocuments:    true,
				ActionGenerateDocuments:  true,
			},
		},
		{
			role: RoleMember,
			allowed: map[string]bool{
				ActionCreateProjects:     true,
				ActionEditProjects:       true,
				ActionDeleteProjects:     false,
				ActionInviteMembers:      false,
				ActionManageMembers:      false,
				ActionManageTeamSettings: false,
				ActionExportDocuments:    true,
				ActionGenerateDocuments:  true,
			},
		},
		{
			role: RoleViewer,
			allowed: map[string]bool{
				ActionCreateProjects:     false,
				ActionEditProjects:       false,
				ActionDeleteProjects:     false,
				ActionInviteMembers:      false,
				ActionManageMembers:      false,
				ActionManageTeamSettings: false,
				ActionExportDocuments:    true,
				ActionGenerateDocuments:  false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			perms := DefaultPermissionsFor(tt.role)
			for _, action := range allActions {
				assert.Equal(t, tt.allowed[action], perms.Allows(action),
					"role %s action %s", tt.role, action)
			}
		})
	}
}

func TestDefaultPermissionsUnknownRole(t *testing.T) {
	perms := DefaultPermissionsFor("superuser")
	for _, action := range allActions {
		assert.False(t, perms.Allows(action))
	}
}

func TestPermissionsUnknownActionDenied(t *testing.T) {
	perms := DefaultPermissionsFor(RoleOwner)
	assert.False(t, perms.Allows("can_delete_team"))
	assert.False(t, perms.Allows(""))
}

func TestMemberAllowsOverrideReplacesDefaults(t *testing.T) {
	// A viewer granted an explicit record gains exactly what it lists,
	// losing the role defaults entirely.
	member := &TeamMember{
		Role:   RoleViewer,
		Status: MemberStatusActive,
		Permissions: &TeamPermissions{
			CanGenerateDocuments: true,
		},
	}

	assert.True(t, member.Allows(ActionGenerateDocuments))
	// Viewer default, dropped because the override does not carry it.
	assert.False(t, member.Allows(ActionExportDocuments))
}

func TestMemberAllowsInactiveDenied(t *testing.T) {
	for _, status := range []string{MemberStatusInactive, MemberStatusRemoved} {
		member := &TeamMember{Role: RoleOwner, Status: status}
		assert.False(t, member.Allows(ActionCreateProjects), "status %s", status)
	}

	var nilMember *TeamMember
	assert.False(t, nilMember.Allows(ActionCreateProjects))
}

func TestMemberAllowsRoleDefaultWithoutOverride(t *testing.T) {
	member := &TeamMember{Role: RoleMember, Status: MemberStatusActive}
	assert.True(t, member.Allows(ActionCreateProjects))
	assert.False(t, member.Allows(ActionManageMembers))
}
