package store

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNotificationIDsUnique(t *testing.T) {
	a := NewAppStore(nil)
	defer a.Close()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := a.AddNotification(NotificationInfo, "msg "+strconv.Itoa(i), 0)
		assert.False(t, seen[id], "duplicate notification id %s", id)
		seen[id] = true
	}
	assert.Len(t, a.State().Notifications, 50)
}

func TestNotificationAutoRemoval(t *testing.T) {
	a := NewAppStore(nil)
	defer a.Close()

	id := a.AddNotification(NotificationSuccess, "saved", 30*time.Millisecond)
	require.Len(t, a.State().Notifications, 1)
	assert.Equal(t, id, a.State().Notifications[0].ID)
	assert.False(t, a.State().Notifications[0].CreatedAt.IsZero())

	require.Eventually(t, func() bool {
		return len(a.State().Notifications) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNotificationWithoutDurationStays(t *testing.T) {
	a := NewAppStore(nil)
	defer a.Close()

	a.AddNotification(NotificationError, "export failed", 0)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, a.State().Notifications, 1)
}

func TestRemoveAndClearNotifications(t *testing.T) {
	a := NewAppStore(nil)
	defer a.Close()

	id1 := a.AddNotification(NotificationInfo, "one", 0)
	a.AddNotification(NotificationInfo, "two", 0)

	a.RemoveNotification(id1)
	require.Len(t, a.State().Notifications, 1)
	assert.Equal(t, "two", a.State().Notifications[0].Message)

	// Removing an unknown id is a no-op.
	a.RemoveNotification("missing")
	assert.Len(t, a.State().Notifications, 1)

	a.ClearNotifications()
	assert.Empty(t, a.State().Notifications)
}

func TestNotificationSnapshotSurvivesRemoval(t *testing.T) {
	a := NewAppStore(nil)
	defer a.Close()

	id1 := a.AddNotification(NotificationInfo, "one", 0)
	a.AddNotification(NotificationInfo, "two", 0)

	snap := a.State()
	a.RemoveNotification(id1)

	require.Len(t, snap.Notifications, 2)
	assert.Equal(t, "one", snap.Notifications[0].Message)
	assert.Equal(t, "two", snap.Notifications[1].Message)
}

func TestCloseCancelsPendingTimers(t *testing.T) {
	a := NewAppStore(nil)

	a.AddNotification(NotificationInfo, "pending", time.Hour)
	require.NoError(t, a.Close())

	a.mu.Lock()
	defer a.mu.Unlock()
	assert.Empty(t, a.timers)
	assert.True(t, a.closed)
}

func TestAuthStubs(t *testing.T) {
	a := NewAppStore(nil)
	defer a.Close()

	assert.ErrorIs(t, a.Login(context.Background(), "a@b.com", "pw"), ErrUseSessionStore)
	assert.ErrorIs(t, a.Logout(), ErrUseSessionStore)
}

func TestAppMirrorsSessionAuth(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, saveSnapshot(storage, sessionKey, sessionVersion, persistedSession{
		User:            &User{UID: "u1", Email: "a@b.com"},
		IsAuthenticated: true,
	}))

	session := NewSessionStore("http://unused", storage, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := session.CheckAuth(ctx)
	require.NoError(t, err)

	a := NewAppStore(session)
	defer a.Close()

	require.Eventually(t, func() bool {
		return a.State().IsAuthenticated
	}, 2*time.Second, 10*time.Millisecond)

	session.Logout()
	require.Eventually(t, func() bool {
		return !a.State().IsAuthenticated && a.State().User == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestProjectSelectionAndTab(t *testing.T) {
	a := NewAppStore(nil)
	defer a.Close()

	a.SetSelectedProject("p1")
	a.SetActiveTab("documents")
	a.SetDocuments([]Document{{ID: "d1", ProjectID: "p1", Title: "Strategy"}})
	a.SetDiagrams([]Diagram{{ID: "g1", ProjectID: "p1", Title: "Roadmap"}})

	state := a.State()
	assert.Equal(t, "p1", state.SelectedProjectID)
	assert.Equal(t, "documents", state.ActiveTab)
	require.Len(t, state.Documents, 1)
	require.Len(t, state.Diagrams, 1)
}
