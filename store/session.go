package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"kairos/utils"
)

const (
	sessionKey     = "kairos-auth"
	sessionVersion = 2
)

// Earlier persistence schemes, newest first. Records found under these
// keys are migrated to sessionKey and removed.
var legacySessionKeys = []string{"kairos-user", "auth-storage"}

// User is the client-side view of an authenticated user.
type User struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	ProjectID     string `json:"projectId"`
	CreatedTime   int64  `json:"createdTime"`
	LastLoginTime int64  `json:"lastLoginTime"`
}

// SessionState is the session store's state snapshot.
type SessionState struct {
	User            *User  `json:"user"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	Loading         bool   `json:"loading"`
	Error           string `json:"error"`
}

// persistedSession is the subset of SessionState that survives restarts.
type persistedSession struct {
	User            *User `json:"user"`
	IsAuthenticated bool  `json:"isAuthenticated"`
}

// SessionStore owns authentication state. Construct one per application
// with NewSessionStore; there are no package-level instances.
type SessionStore struct {
	endpoint string
	storage  Storage
	client   *http.Client

	mu       sync.Mutex
	state    SessionState
	loginSeq uint64
	subs     map[int]func(SessionState)
	nextSub  int

	initOnce sync.Once
	ready    chan struct{}
}

// NewSessionStore creates a session store talking to the API at endpoint.
// Hydration from storage starts immediately in the background; use
// CheckAuth to wait for it. A nil client falls back to a default with a
// sane timeout.
func NewSessionStore(endpoint string, storage Storage, client *http.Client) *SessionStore {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	s := &SessionStore{
		endpoint: endpoint,
		storage:  storage,
		client:   client,
		subs:     make(map[int]func(SessionState)),
		ready:    make(chan struct{}),
	}
	s.Initialize()
	return s
}

// Initialize starts hydration from storage. Safe to call more than once.
func (s *SessionStore) Initialize() {
	s.initOnce.Do(func() {
		go s.hydrate()
	})
}

// Close drops all subscribers. The store remains usable afterwards but
// no longer notifies anyone.
func (s *SessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = make(map[int]func(SessionState))
	return nil
}

// Subscribe registers a callback fired after every state change. The
// returned function removes the subscription.
func (s *SessionStore) Subscribe(fn func(SessionState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// State returns a copy of the current state.
func (s *SessionStore) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SessionStore) setState(mutate func(*SessionState)) {
	s.mu.Lock()
	mutate(&s.state)
	st := s.state
	subs := make([]func(SessionState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// hydrate restores the persisted session, migrating records written
// under earlier keys.
func (s *SessionStore) hydrate() {
	defer close(s.ready)

	var persisted persistedSession
	err := loadSnapshot(s.storage, sessionKey, sessionVersion, &persisted)
	if errors.Is(err, ErrNotFound) {
		persisted, err = s.migrateLegacy()
	}
	if err != nil {
		return
	}
	s.setState(func(st *SessionState) {
		st.User = persisted.User
		st.IsAuthenticated = persisted.IsAuthenticated && persisted.User != nil
	})
}

// migrateLegacy reads the newest legacy record, rewrites it under the
// current key and removes every legacy key it finds.
func (s *SessionStore) migrateLegacy() (persistedSession, error) {
	var found persistedSession
	var ok bool
	for _, key := range legacySessionKeys {
		data, err := s.storage.Load(key)
		if err != nil {
			continue
		}
		_ = s.storage.Delete(key)
		if ok {
			continue // newer key already won
		}
		var legacy persistedSession
		if err := json.Unmarshal(data, &legacy); err != nil || legacy.User == nil {
			continue
		}
		found = legacy
		ok = true
	}
	if !ok {
		return persistedSession{}, ErrNotFound
	}
	if err := saveSnapshot(s.storage, sessionKey, sessionVersion, found); err != nil {
		return persistedSession{}, err
	}
	return found, nil
}

// CheckAuth waits for hydration to finish and reports whether a user is
// authenticated. The wait is bounded by ctx.
func (s *SessionStore) CheckAuth(ctx context.Context) (bool, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsAuthenticated, nil
}

// loginResponse is the subset of the auth endpoint's response the store
// cares about.
type loginResponse struct {
	Error string `json:"error"`
	User  *struct {
		UID         string `json:"uid"`
		Email       string `json:"email"`
		Name        string `json:"name"`
		ProjectID   string `json:"projectId"`
		CreatedTime int64  `json:"createdTime"`
	} `json:"user"`
}

// Login authenticates against the API. On failure the error is both
// recorded in state and returned. A login started after this one
// supersedes it: the stale response resolves without touching state.
func (s *SessionStore) Login(ctx context.Context, email, password string) (*User, error) {
	s.mu.Lock()
	s.loginSeq++
	seq := s.loginSeq
	s.mu.Unlock()
	s.setState(func(st *SessionState) {
		st.Loading = true
		st.Error = ""
	})

	user, err := s.doLogin(ctx, email, password)

	s.mu.Lock()
	superseded := seq != s.loginSeq
	s.mu.Unlock()
	if superseded {
		return user, err
	}

	if err != nil {
		s.setState(func(st *SessionState) {
			st.User = nil
			st.IsAuthenticated = false
			st.Loading = false
			st.Error = err.Error()
		})
		return nil, err
	}

	s.setState(func(st *SessionState) {
		st.User = user
		st.IsAuthenticated = true
		st.Loading = false
		st.Error = ""
	})
	if err := saveSnapshot(s.storage, sessionKey, sessionVersion, persistedSession{
		User:            user,
		IsAuthenticated: true,
	}); err != nil {
		return user, err
	}
	return user, nil
}

func (s *SessionStore) doLogin(ctx context.Context, email, password string) (*User, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.endpoint+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed loginResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && parsed.Error != "" {
			return nil, errors.New(parsed.Error)
		}
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	if decodeErr != nil || parsed.User == nil {
		return nil, errors.New("login response missing user")
	}

	name := parsed.User.Name
	if name == "" {
		name = utils.EmailLocalPart(parsed.User.Email)
	}
	return &User{
		UID:           parsed.User.UID,
		Email:         parsed.User.Email,
		Name:          name,
		ProjectID:     parsed.User.ProjectID,
		CreatedTime:   parsed.User.CreatedTime,
		LastLoginTime: time.Now().UnixMilli(),
	}, nil
}

// Logout clears the session locally and removes the persisted record.
// No server call is made.
func (s *SessionStore) Logout() error {
	s.setState(func(st *SessionState) {
		st.User = nil
		st.IsAuthenticated = false
		st.Loading = false
		st.Error = ""
	})
	return s.storage.Delete(sessionKey)
}
