package store

import (
	"errors"
	"sync"

	"kairos/models"
)

const (
	teamKey     = "kairos-team"
	teamVersion = 1

	// Activity feed is capped to the most recent entries.
	activityCap = 100
)

// Team is the client-side view of a team.
type Team struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   int64  `json:"created_at"`
}

// TeamMember is the client-side view of a membership. Permissions, when
// set, fully replaces the role's defaults.
type TeamMember struct {
	ID          string                  `json:"id"`
	TeamID      string                  `json:"team_id"`
	UserID      string                  `json:"user_id"`
	Role        string                  `json:"role"`
	Status      string                  `json:"status"`
	Permissions *models.TeamPermissions `json:"permissions,omitempty"`
}

func (m *TeamMember) allows(action string) bool {
	if m == nil || m.Status != models.MemberStatusActive {
		return false
	}
	if m.Permissions != nil {
		return m.Permissions.Allows(action)
	}
	return models.DefaultPermissionsFor(m.Role).Allows(action)
}

type TeamInvitation struct {
	ID        string `json:"id"`
	TeamID    string `json:"team_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	ExpiresAt int64  `json:"expires_at"`
}

type TeamActivity struct {
	ID        string `json:"id"`
	TeamID    string `json:"team_id"`
	ActorID   string `json:"actor_id"`
	Action    string `json:"action"`
	Detail    string `json:"detail"`
	CreatedAt int64  `json:"created_at"`
}

// TeamState is the team store's state snapshot.
type TeamState struct {
	Teams       []Team           `json:"teams"`
	CurrentTeam *Team            `json:"currentTeam"`
	Members     []TeamMember     `json:"members"`
	Invitations []TeamInvitation `json:"invitations"`
	Activities  []TeamActivity   `json:"activities"`
	Loading     bool             `json:"loading"`
	Error       string           `json:"error"`
}

// persistedTeam is the subset of TeamState that survives restarts.
// Members, invitations and activities are re-fetched, so permission
// checks right after a reload return false until membership is loaded.
type persistedTeam struct {
	Teams       []Team `json:"teams"`
	CurrentTeam *Team  `json:"currentTeam"`
}

// TeamStore owns team, membership and activity state and is the single
// place client-side permissions are resolved.
type TeamStore struct {
	storage Storage

	mu      sync.Mutex
	state   TeamState
	subs    map[int]func(TeamState)
	nextSub int
}

func NewTeamStore(storage Storage) *TeamStore {
	return &TeamStore{
		storage: storage,
		subs:    make(map[int]func(TeamState)),
	}
}

// Initialize restores the persisted teams and current team selection.
func (t *TeamStore) Initialize() error {
	var persisted persistedTeam
	err := loadSnapshot(t.storage, teamKey, teamVersion, &persisted)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	t.setState(func(st *TeamState) {
		st.Teams = persisted.Teams
		st.CurrentTeam = persisted.CurrentTeam
	})
	return nil
}

// Close drops all subscribers.
func (t *TeamStore) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = make(map[int]func(TeamState))
	return nil
}

// Subscribe registers a callback fired after every state change.
func (t *TeamStore) Subscribe(fn func(TeamState)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subs, id)
	}
}

// State returns a copy of the current state.
func (t *TeamStore) State() TeamState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *TeamStore) setState(mutate func(*TeamState)) {
	t.mu.Lock()
	mutate(&t.state)
	st := t.state
	subs := make([]func(TeamState), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// persist writes the durable subset of state. Called after every
// mutation of teams or the current team.
func (t *TeamStore) persist() error {
	t.mu.Lock()
	persisted := persistedTeam{
		Teams:       t.state.Teams,
		CurrentTeam: t.state.CurrentTeam,
	}
	t.mu.Unlock()
	return saveSnapshot(t.storage, teamKey, teamVersion, persisted)
}

func (t *TeamStore) SetLoading(loading bool) {
	t.setState(func(st *TeamState) { st.Loading = loading })
}

func (t *TeamStore) SetError(msg string) {
	t.setState(func(st *TeamState) { st.Error = msg })
}

func (t *TeamStore) SetTeams(teams []Team) error {
	t.setState(func(st *TeamState) { st.Teams = teams })
	return t.persist()
}

// SetCurrentTeam selects a team. Passing nil clears the selection.
func (t *TeamStore) SetCurrentTeam(team *Team) error {
	t.setState(func(st *TeamState) { st.CurrentTeam = team })
	return t.persist()
}

func (t *TeamStore) AddTeam(team Team) error {
	t.setState(func(st *TeamState) {
		st.Teams = append(st.Teams, team)
	})
	return t.persist()
}

// UpdateTeam replaces a team by id. When the current team is updated,
// the selection is refreshed so both copies stay identical. The slice is
// rebuilt rather than written in place so snapshots handed out earlier
// keep the old values.
func (t *TeamStore) UpdateTeam(team Team) error {
	t.setState(func(st *TeamState) {
		out := make([]Team, len(st.Teams))
		for i, tm := range st.Teams {
			if tm.ID == team.ID {
				out[i] = team
			} else {
				out[i] = tm
			}
		}
		st.Teams = out
		if st.CurrentTeam != nil && st.CurrentTeam.ID == team.ID {
			updated := team
			st.CurrentTeam = &updated
		}
	})
	return t.persist()
}

func (t *TeamStore) RemoveTeam(id string) error {
	t.setState(func(st *TeamState) {
		out := make([]Team, 0, len(st.Teams))
		for _, tm := range st.Teams {
			if tm.ID != id {
				out = append(out, tm)
			}
		}
		st.Teams = out
		if st.CurrentTeam != nil && st.CurrentTeam.ID == id {
			st.CurrentTeam = nil
		}
	})
	return t.persist()
}

func (t *TeamStore) SetMembers(members []TeamMember) {
	t.setState(func(st *TeamState) { st.Members = members })
}

func (t *TeamStore) AddMember(member TeamMember) {
	t.setState(func(st *TeamState) {
		st.Members = append(st.Members, member)
	})
}

func (t *TeamStore) UpdateMember(member TeamMember) {
	t.setState(func(st *TeamState) {
		out := make([]TeamMember, len(st.Members))
		for i, m := range st.Members {
			if m.ID == member.ID {
				out[i] = member
			} else {
				out[i] = m
			}
		}
		st.Members = out
	})
}

func (t *TeamStore) RemoveMember(id string) {
	t.setState(func(st *TeamState) {
		out := make([]TeamMember, 0, len(st.Members))
		for _, m := range st.Members {
			if m.ID != id {
				out = append(out, m)
			}
		}
		st.Members = out
	})
}

func (t *TeamStore) SetInvitations(invitations []TeamInvitation) {
	t.setState(func(st *TeamState) { st.Invitations = invitations })
}

func (t *TeamStore) AddInvitation(inv TeamInvitation) {
	t.setState(func(st *TeamState) {
		st.Invitations = append(st.Invitations, inv)
	})
}

func (t *TeamStore) UpdateInvitation(inv TeamInvitation) {
	t.setState(func(st *TeamState) {
		out := make([]TeamInvitation, len(st.Invitations))
		for i, cur := range st.Invitations {
			if cur.ID == inv.ID {
				out[i] = inv
			} else {
				out[i] = cur
			}
		}
		st.Invitations = out
	})
}

func (t *TeamStore) RemoveInvitation(id string) {
	t.setState(func(st *TeamState) {
		out := make([]TeamInvitation, 0, len(st.Invitations))
		for _, inv := range st.Invitations {
			if inv.ID != id {
				out = append(out, inv)
			}
		}
		st.Invitations = out
	})
}

func (t *TeamStore) SetActivities(activities []TeamActivity) {
	t.setState(func(st *TeamState) {
		if len(activities) > activityCap {
			activities = activities[:activityCap]
		}
		st.Activities = activities
	})
}

// AddActivity prepends an entry and trims the feed to the most recent
// entries, newest first.
func (t *TeamStore) AddActivity(activity TeamActivity) {
	t.setState(func(st *TeamState) {
		st.Activities = append([]TeamActivity{activity}, st.Activities...)
		if len(st.Activities) > activityCap {
			st.Activities = st.Activities[:activityCap]
		}
	})
}

// ClearTeamData resets every collection. Used on logout and when
// switching accounts.
func (t *TeamStore) ClearTeamData() error {
	t.setState(func(st *TeamState) {
		st.Teams = nil
		st.CurrentTeam = nil
		st.Members = nil
		st.Invitations = nil
		st.Activities = nil
		st.Loading = false
		st.Error = ""
	})
	return t.persist()
}

// activeMember finds the current team's active membership for a user.
// Caller holds t.mu.
func (t *TeamStore) activeMember(userID string) *TeamMember {
	if t.state.CurrentTeam == nil {
		return nil
	}
	for i := range t.state.Members {
		m := &t.state.Members[i]
		if m.UserID == userID && m.TeamID == t.state.CurrentTeam.ID &&
			m.Status == models.MemberStatusActive {
			return m
		}
	}
	return nil
}

// CanUserPerformAction resolves a permission against the current team.
// Never errors: no current team or no active membership means false.
func (t *TeamStore) CanUserPerformAction(userID, action string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeMember(userID).allows(action)
}

// GetUserRole returns the user's role in the current team, or "".
func (t *TeamStore) GetUserRole(userID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.activeMember(userID)
	if m == nil {
		return ""
	}
	return m.Role
}

// IsTeamOwner checks ownership against the team record alone; the
// membership table is deliberately not consulted.
func (t *TeamStore) IsTeamOwner(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.CurrentTeam != nil && t.state.CurrentTeam.OwnerID == userID
}

// IsTeamAdmin reports whether the user's role grants admin standing.
func (t *TeamStore) IsTeamAdmin(userID string) bool {
	role := t.GetUserRole(userID)
	return role == models.RoleOwner || role == models.RoleAdmin
}
