package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// ErrUseSessionStore is returned by the application store's auth stubs.
// Authentication belongs to the session store; these methods exist only
// to satisfy callers written against the combined store surface.
var ErrUseSessionStore = errors.New("store: use the session store for authentication")

type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationSuccess NotificationKind = "success"
	NotificationWarning NotificationKind = "warning"
	NotificationError   NotificationKind = "error"
)

type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"createdAt"`
	// Duration > 0 schedules automatic removal.
	Duration time.Duration `json:"-"`
}

// Document is the client-side view of a project document.
type Document struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Kind      string `json:"kind"`
	Format    string `json:"format"`
	Content   string `json:"content"`
}

type Diagram struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
}

// AppState is the application store's state snapshot. The auth fields
// mirror the session store; the application store holds no auth logic.
type AppState struct {
	SelectedProjectID string         `json:"selectedProjectId"`
	Documents         []Document     `json:"documents"`
	Diagrams          []Diagram      `json:"diagrams"`
	Notifications     []Notification `json:"notifications"`
	ActiveTab         string         `json:"activeTab"`
	User              *User          `json:"user"`
	IsAuthenticated   bool           `json:"isAuthenticated"`
}

// AppStore holds UI-facing state: project selection, loaded documents
// and diagrams, transient notifications and the active tab.
type AppStore struct {
	session *SessionStore

	mu          sync.Mutex
	state       AppState
	subs        map[int]func(AppState)
	nextSub     int
	timers      []*time.Timer
	unsubscribe func()
	closed      bool
}

// NewAppStore creates an application store mirroring the given session
// store's auth state.
func NewAppStore(session *SessionStore) *AppStore {
	a := &AppStore{
		session: session,
		subs:    make(map[int]func(AppState)),
	}
	if session != nil {
		snap := session.State()
		a.state.User = snap.User
		a.state.IsAuthenticated = snap.IsAuthenticated
		a.unsubscribe = session.Subscribe(func(st SessionState) {
			a.setState(func(as *AppState) {
				as.User = st.User
				as.IsAuthenticated = st.IsAuthenticated
			})
		})
	}
	return a
}

// Close stops the session mirror and cancels every pending
// notification timer. Individual removals never cancel timers; a timer
// firing after its notification is gone is a no-op.
func (a *AppStore) Close() error {
	a.mu.Lock()
	timers := a.timers
	a.timers = nil
	a.subs = make(map[int]func(AppState))
	a.closed = true
	unsub := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	for _, timer := range timers {
		timer.Stop()
	}
	return nil
}

// Subscribe registers a callback fired after every state change.
func (a *AppStore) Subscribe(fn func(AppState)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subs, id)
	}
}

// State returns a copy of the current state.
func (a *AppStore) State() AppState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *AppStore) setState(mutate func(*AppState)) {
	a.mu.Lock()
	mutate(&a.state)
	st := a.state
	subs := make([]func(AppState), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

func (a *AppStore) SetSelectedProject(id string) {
	a.setState(func(st *AppState) { st.SelectedProjectID = id })
}

func (a *AppStore) SetActiveTab(tab string) {
	a.setState(func(st *AppState) { st.ActiveTab = tab })
}

func (a *AppStore) SetDocuments(docs []Document) {
	a.setState(func(st *AppState) { st.Documents = docs })
}

func (a *AppStore) SetDiagrams(diagrams []Diagram) {
	a.setState(func(st *AppState) { st.Diagrams = diagrams })
}

// AddNotification appends a notification and returns its id. A
// positive duration schedules removal via time.AfterFunc.
func (a *AppStore) AddNotification(kind NotificationKind, message string, duration time.Duration) string {
	id := fmt.Sprintf("%d-%06d", time.Now().UnixMilli(), rand.Intn(1000000))
	n := Notification{
		ID:        id,
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	}
	a.setState(func(st *AppState) {
		st.Notifications = append(st.Notifications, n)
	})

	if duration > 0 {
		a.mu.Lock()
		if !a.closed {
			timer := time.AfterFunc(duration, func() {
				a.RemoveNotification(id)
			})
			a.timers = append(a.timers, timer)
		}
		a.mu.Unlock()
	}
	return id
}

func (a *AppStore) RemoveNotification(id string) {
	a.setState(func(st *AppState) {
		out := make([]Notification, 0, len(st.Notifications))
		for _, n := range st.Notifications {
			if n.ID != id {
				out = append(out, n)
			}
		}
		st.Notifications = out
	})
}

func (a *AppStore) ClearNotifications() {
	a.setState(func(st *AppState) { st.Notifications = nil })
}

// Login is a stub; authentication lives in the session store.
func (a *AppStore) Login(ctx context.Context, email, password string) error {
	return ErrUseSessionStore
}

// Logout is a stub; authentication lives in the session store.
func (a *AppStore) Logout() error {
	return ErrUseSessionStore
}
