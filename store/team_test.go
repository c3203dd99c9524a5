package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/models"
)

func newTestTeamStore(t *testing.T) *TeamStore {
	t.Helper()
	ts := NewTeamStore(NewMemoryStorage())
	require.NoError(t, ts.Initialize())
	return ts
}

func selectTeam(t *testing.T, ts *TeamStore, team Team) {
	t.Helper()
	require.NoError(t, ts.AddTeam(team))
	require.NoError(t, ts.SetCurrentTeam(&team))
}

func TestPermissionChecksWithoutCurrentTeam(t *testing.T) {
	ts := newTestTeamStore(t)

	assert.False(t, ts.CanUserPerformAction("u1", models.ActionCreateProjects))
	assert.Equal(t, "", ts.GetUserRole("u1"))
	assert.False(t, ts.IsTeamOwner("u1"))
	assert.False(t, ts.IsTeamAdmin("u1"))
}

func TestCanUserPerformActionRoleDefaults(t *testing.T) {
	ts := newTestTeamStore(t)
	selectTeam(t, ts, Team{ID: "t1", Name: "Planning", OwnerID: "owner-1"})
	ts.SetMembers([]TeamMember{
		{ID: "m1", TeamID: "t1", UserID: "u-viewer", Role: models.RoleViewer, Status: models.MemberStatusActive},
		{ID: "m2", TeamID: "t1", UserID: "u-member", Role: models.RoleMember, Status: models.MemberStatusActive},
		{ID: "m3", TeamID: "t1", UserID: "u-owner", Role: models.RoleOwner, Status: models.MemberStatusActive},
	})

	assert.False(t, ts.CanUserPerformAction("u-viewer", models.ActionGenerateDocuments))
	assert.True(t, ts.CanUserPerformAction("u-viewer", models.ActionExportDocuments))

	assert.True(t, ts.CanUserPerformAction("u-member", models.ActionCreateProjects))
	assert.False(t, ts.CanUserPerformAction("u-member", models.ActionManageMembers))

	for _, action := range []string{
		models.ActionCreateProjects,
		models.ActionEditProjects,
		models.ActionDeleteProjects,
		models.ActionInviteMembers,
		models.ActionManageMembers,
		models.ActionManageTeamSettings,
		models.ActionExportDocuments,
		models.ActionGenerateDocuments,
	} {
		assert.True(t, ts.CanUserPerformAction("u-owner", action), action)
	}
}

func TestCanUserPerformActionOverrideReplaces(t *testing.T) {
	ts := newTestTeamStore(t)
	selectTeam(t, ts, Team{ID: "t1", OwnerID: "owner-1"})
	ts.SetMembers([]TeamMember{{
		ID:     "m1",
		TeamID: "t1",
		UserID: "u1",
		Role:   models.RoleMember,
		Status: models.MemberStatusActive,
		Permissions: &models.TeamPermissions{
			CanManageMembers: true,
		},
	}})

	// Granted by the override.
	assert.True(t, ts.CanUserPerformAction("u1", models.ActionManageMembers))
	// Member default, gone because the override replaces wholesale.
	assert.False(t, ts.CanUserPerformAction("u1", models.ActionCreateProjects))
}

func TestCanUserPerformActionInactiveMember(t *testing.T) {
	ts := newTestTeamStore(t)
	selectTeam(t, ts, Team{ID: "t1", OwnerID: "owner-1"})
	ts.SetMembers([]TeamMember{{
		ID: "m1", TeamID: "t1", UserID: "u1",
		Role: models.RoleAdmin, Status: models.MemberStatusInactive,
	}})

	assert.False(t, ts.CanUserPerformAction("u1", models.ActionCreateProjects))
	assert.Equal(t, "", ts.GetUserRole("u1"))
}

func TestMembershipScopedToCurrentTeam(t *testing.T) {
	ts := newTestTeamStore(t)
	selectTeam(t, ts, Team{ID: "t1", OwnerID: "owner-1"})
	// Active membership, but in a different team.
	ts.SetMembers([]TeamMember{{
		ID: "m1", TeamID: "t2", UserID: "u1",
		Role: models.RoleAdmin, Status: models.MemberStatusActive,
	}})

	assert.False(t, ts.CanUserPerformAction("u1", models.ActionCreateProjects))
}

func TestIsTeamOwnerUsesTeamRecordOnly(t *testing.T) {
	ts := newTestTeamStore(t)
	selectTeam(t, ts, Team{ID: "t1", OwnerID: "owner-1"})

	// No membership row at all, ownership still holds.
	assert.True(t, ts.IsTeamOwner("owner-1"))
	assert.False(t, ts.IsTeamOwner("u1"))

	// A membership row claiming the owner role does not confer ownership.
	ts.SetMembers([]TeamMember{{
		ID: "m1", TeamID: "t1", UserID: "u1",
		Role: models.RoleOwner, Status: models.MemberStatusActive,
	}})
	assert.False(t, ts.IsTeamOwner("u1"))
	assert.True(t, ts.IsTeamAdmin("u1"))
}

func TestActivityFeedCapped(t *testing.T) {
	ts := newTestTeamStore(t)

	for i := 0; i < 105; i++ {
		ts.AddActivity(TeamActivity{
			ID:     fmt.Sprintf("a%d", i),
			TeamID: "t1",
			Action: "member_added",
		})
	}

	activities := ts.State().Activities
	require.Len(t, activities, 100)
	// Newest first: the last added entry leads, the oldest five are gone.
	assert.Equal(t, "a104", activities[0].ID)
	assert.Equal(t, "a5", activities[99].ID)
}

func TestUpdateTeamRefreshesCurrentTeam(t *testing.T) {
	ts := newTestTeamStore(t)
	selectTeam(t, ts, Team{ID: "t1", Name: "Before", OwnerID: "owner-1"})

	require.NoError(t, ts.UpdateTeam(Team{ID: "t1", Name: "After", OwnerID: "owner-1"}))

	state := ts.State()
	require.NotNil(t, state.CurrentTeam)
	assert.Equal(t, "After", state.CurrentTeam.Name)
	require.Len(t, state.Teams, 1)
	assert.Equal(t, *state.CurrentTeam, state.Teams[0])
}

func TestUpdateOtherTeamLeavesCurrentTeam(t *testing.T) {
	ts := newTestTeamStore(t)
	selectTeam(t, ts, Team{ID: "t1", Name: "Current", OwnerID: "owner-1"})
	require.NoError(t, ts.AddTeam(Team{ID: "t2", Name: "Other", OwnerID: "owner-2"}))

	require.NoError(t, ts.UpdateTeam(Team{ID: "t2", Name: "Renamed", OwnerID: "owner-2"}))

	state := ts.State()
	require.NotNil(t, state.CurrentTeam)
	assert.Equal(t, "Current", state.CurrentTeam.Name)
}

func TestRemoveCurrentTeamClearsSelection(t *testing.T) {
	ts := newTestTeamStore(t)
	selectTeam(t, ts, Team{ID: "t1", OwnerID: "owner-1"})

	require.NoError(t, ts.RemoveTeam("t1"))

	state := ts.State()
	assert.Nil(t, state.CurrentTeam)
	assert.Empty(t, state.Teams)
}

func TestOnlyTeamsAndSelectionPersist(t *testing.T) {
	storage := NewMemoryStorage()
	ts := NewTeamStore(storage)
	require.NoError(t, ts.Initialize())

	selectTeam(t, ts, Team{ID: "t1", Name: "Planning", OwnerID: "owner-1"})
	ts.SetMembers([]TeamMember{{
		ID: "m1", TeamID: "t1", UserID: "u1",
		Role: models.RoleAdmin, Status: models.MemberStatusActive,
	}})
	ts.AddActivity(TeamActivity{ID: "a1", TeamID: "t1", Action: "member_added"})

	// Fresh store over the same storage: the durable subset survives.
	reloaded := NewTeamStore(storage)
	require.NoError(t, reloaded.Initialize())

	state := reloaded.State()
	require.Len(t, state.Teams, 1)
	require.NotNil(t, state.CurrentTeam)
	assert.Equal(t, "t1", state.CurrentTeam.ID)
	assert.Empty(t, state.Members)
	assert.Empty(t, state.Activities)

	// Membership not yet re-hydrated: permission checks deny.
	assert.False(t, reloaded.CanUserPerformAction("u1", models.ActionCreateProjects))
	// Ownership needs only the team record.
	assert.True(t, reloaded.IsTeamOwner("owner-1"))
}

func TestClearTeamData(t *testing.T) {
	ts := newTestTeamStore(t)
	selectTeam(t, ts, Team{ID: "t1", OwnerID: "owner-1"})
	ts.SetMembers([]TeamMember{{ID: "m1", TeamID: "t1", UserID: "u1"}})
	ts.SetInvitations([]TeamInvitation{{ID: "i1", TeamID: "t1"}})
	ts.AddActivity(TeamActivity{ID: "a1", TeamID: "t1"})
	ts.SetError("boom")

	require.NoError(t, ts.ClearTeamData())

	state := ts.State()
	assert.Empty(t, state.Teams)
	assert.Nil(t, state.CurrentTeam)
	assert.Empty(t, state.Members)
	assert.Empty(t, state.Invitations)
	assert.Empty(t, state.Activities)
	assert.Empty(t, state.Error)
	assert.False(t, state.Loading)
}

func TestSnapshotsSurviveLaterMutations(t *testing.T) {
	ts := newTestTeamStore(t)
	require.NoError(t, ts.AddTeam(Team{ID: "t1", Name: "One", OwnerID: "owner-1"}))
	require.NoError(t, ts.AddTeam(Team{ID: "t2", Name: "Two", OwnerID: "owner-2"}))

	var fromSub TeamState
	ts.Subscribe(func(st TeamState) { fromSub = st })

	snap := ts.State()
	require.NoError(t, ts.RemoveTeam("t1"))

	// The earlier snapshot keeps the old collection untouched.
	require.Len(t, snap.Teams, 2)
	assert.Equal(t, "One", snap.Teams[0].Name)
	assert.Equal(t, "Two", snap.Teams[1].Name)

	// A snapshot handed to a subscriber is frozen the same way.
	held := fromSub
	require.NoError(t, ts.AddTeam(Team{ID: "t3", Name: "Three", OwnerID: "owner-3"}))
	require.NoError(t, ts.UpdateTeam(Team{ID: "t2", Name: "Renamed", OwnerID: "owner-2"}))
	require.Len(t, held.Teams, 1)
	assert.Equal(t, "Two", held.Teams[0].Name)

	// Member and invitation collections follow the same rule.
	ts.SetMembers([]TeamMember{{ID: "m1", TeamID: "t2", UserID: "u1", Role: models.RoleMember}})
	ts.AddInvitation(TeamInvitation{ID: "i1", TeamID: "t2", Email: "a@b.com"})
	before := ts.State()
	ts.UpdateMember(TeamMember{ID: "m1", TeamID: "t2", UserID: "u1", Role: models.RoleAdmin})
	ts.RemoveInvitation("i1")
	assert.Equal(t, models.RoleMember, before.Members[0].Role)
	require.Len(t, before.Invitations, 1)
}

func TestInvitationCollectionOps(t *testing.T) {
	ts := newTestTeamStore(t)

	ts.AddInvitation(TeamInvitation{ID: "i1", Email: "a@b.com", Status: models.InvitationStatusPending})
	ts.AddInvitation(TeamInvitation{ID: "i2", Email: "c@d.com", Status: models.InvitationStatusPending})

	ts.UpdateInvitation(TeamInvitation{ID: "i1", Email: "a@b.com", Status: models.InvitationStatusRevoked})
	ts.RemoveInvitation("i2")

	invitations := ts.State().Invitations
	require.Len(t, invitations, 1)
	assert.Equal(t, models.InvitationStatusRevoked, invitations[0].Status)
}
