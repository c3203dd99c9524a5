package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kairos/models"
)

func TestExpireInvitations(t *testing.T) {
	db := newTestDB(t)

	stale := models.TeamInvitation{
		TeamID: 1, InviterID: 1, Email: "late@example.com",
		Role: models.RoleMember, Status: models.InvitationStatusPending,
		Token: "tok-stale", ExpiresAt: time.Now().Add(-time.Hour),
	}
	fresh := models.TeamInvitation{
		TeamID: 1, InviterID: 1, Email: "soon@example.com",
		Role: models.RoleMember, Status: models.InvitationStatusPending,
		Token: "tok-fresh", ExpiresAt: time.Now().Add(time.Hour),
	}
	accepted := models.TeamInvitation{
		TeamID: 1, InviterID: 1, Email: "done@example.com",
		Role: models.RoleMember, Status: models.InvitationStatusAccepted,
		Token: "tok-done", ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, db.Create(&fresh).Error)
	require.NoError(t, db.Create(&accepted).Error)

	iw := NewInvitationWorker(db, newQuietLogger())
	iw.expireInvitations()

	var got models.TeamInvitation
	require.NoError(t, db.First(&got, stale.ID).Error)
	assert.Equal(t, models.InvitationStatusExpired, got.Status)

	got = models.TeamInvitation{}
	require.NoError(t, db.First(&got, fresh.ID).Error)
	assert.Equal(t, models.InvitationStatusPending, got.Status)

	// Only pending invitations are touched.
	got = models.TeamInvitation{}
	require.NoError(t, db.First(&got, accepted.ID).Error)
	assert.Equal(t, models.InvitationStatusAccepted, got.Status)
}
