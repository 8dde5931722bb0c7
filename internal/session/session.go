// Package session holds the authenticated identity and bearer token.
// The session is persisted as a single JSON record on disk; token and
// user are always set and cleared together.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tienda/internal/api"
	"tienda/internal/logging"
)

// Record is the persisted session: one token, one user.
type Record struct {
	Token string   `json:"token"`
	User  api.User `json:"user"`
}

// State is the session as consumers see it.
type State struct {
	Logged bool
	Token  string
	User   api.User
}

// HasServerIdentity reports whether the logged-in user carries a
// server-assigned id. Stores that talk to per-user resources require it.
func (s State) HasServerIdentity() bool {
	return s.Logged && s.User.UserID > 0
}

// Validator re-checks a cached token against the backend.
type Validator interface {
	Validate(ctx context.Context, token string) (*api.Credentials, error)
}

// Store owns the session state and its persisted record.
type Store struct {
	mu        sync.RWMutex
	path      string
	state     State
	validator Validator

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int

	watcher *watcher
}

// NewStore creates a session store persisting to path.
func NewStore(path string, validator Validator) *Store {
	return &Store{
		path:      path,
		validator: validator,
		subs:      make(map[int]func(State)),
	}
}

// Subscribe registers a callback invoked after every state change.
// The returned func cancels the subscription.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notify() {
	state := s.Current()
	s.subsMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// Current returns the session state.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the current bearer token, empty when logged out.
// Satisfies api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// readRecord loads the persisted record, nil when absent or unreadable.
func (s *Store) readRecord() *Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		logging.SessionError("corrupt session record: %v", err)
		return nil
	}
	if rec.Token == "" {
		return nil
	}
	return &rec
}

func (s *Store) writeRecord(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	// 0600: the record holds a live bearer token
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *Store) removeRecord() {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		logging.SessionError("failed to remove session record: %v", err)
	}
}

// Init reads the persisted session and optimistically restores it.
// No network traffic happens here; callers follow up with Revalidate.
func (s *Store) Init() State {
	rec := s.readRecord()

	s.mu.Lock()
	if rec == nil {
		s.state = State{}
	} else {
		s.state = State{Logged: true, Token: rec.Token, User: rec.User}
	}
	state := s.state
	s.mu.Unlock()

	if state.Logged {
		logging.Session("restored cached session for %s", state.User.Email)
	} else {
		logging.Session("no cached session")
	}
	s.notify()
	return state
}

// Revalidate checks the cached token against the backend. On success
// the cached user is replaced with the server's view and re-persisted.
// On any failure the session fails closed: state and record are
// cleared, never retried.
func (s *Store) Revalidate(ctx context.Context) State {
	s.mu.RLock()
	token := s.state.Token
	logged := s.state.Logged
	s.mu.RUnlock()

	if !logged || token == "" {
		return s.Current()
	}

	creds, err := s.validator.Validate(ctx, token)
	if err != nil {
		logging.SessionError("validation failed, logging out: %v", err)
		s.clear()
		return s.Current()
	}

	// The validation response may rotate the token
	newToken := creds.Token
	if newToken == "" {
		newToken = token
	}
	rec := Record{Token: newToken, User: creds.User}
	if err := s.writeRecord(rec); err != nil {
		logging.SessionError("failed to persist validated session: %v", err)
	}

	s.mu.Lock()
	s.state = State{Logged: true, Token: rec.Token, User: rec.User}
	s.mu.Unlock()

	logging.Session("session validated for %s", rec.User.Email)
	s.notify()
	return s.Current()
}

// Login establishes a session from fresh credentials and persists it.
func (s *Store) Login(creds *api.Credentials) error {
	if creds == nil || creds.Token == "" {
		return fmt.Errorf("credentials missing token")
	}
	rec := Record{Token: creds.Token, User: creds.User}
	if err := s.writeRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = State{Logged: true, Token: rec.Token, User: rec.User}
	s.mu.Unlock()

	logging.Session("logged in as %s", rec.User.Email)
	s.notify()
	return nil
}

// Logout clears the session immediately. No network round-trip is
// required to be considered logged out.
func (s *Store) Logout() {
	logging.Session("logged out")
	s.clear()
}

func (s *Store) clear() {
	s.removeRecord()
	s.mu.Lock()
	s.state = State{}
	s.mu.Unlock()
	s.notify()
}
