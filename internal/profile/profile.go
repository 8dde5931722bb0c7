// Package profile reads and edits the authenticated user's profile.
package profile

import (
	"context"
	"strings"
	"sync"

	"tienda/internal/api"
)

// Backend is the slice of the API client the profile store needs.
type Backend interface {
	GetProfile(ctx context.Context) (*api.Profile, error)
	UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*api.Profile, error)
}

// Store holds the last-fetched profile.
type Store struct {
	mu      sync.RWMutex
	profile *api.Profile
	backend Backend
}

// NewStore creates a profile store.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Fetch loads the profile from the backend.
func (s *Store) Fetch(ctx context.Context) (*api.Profile, error) {
	p, err := s.backend.GetProfile(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	return p, nil
}

// Current returns the cached profile, nil when never fetched.
func (s *Store) Current() *api.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// Update saves the editable fields, trimming surrounding whitespace
// the way the backend expects them.
func (s *Store) Update(ctx context.Context, upd api.ProfileUpdate) (*api.Profile, error) {
	upd.Nombre = strings.TrimSpace(upd.Nombre)
	upd.Apellidos = strings.TrimSpace(upd.Apellidos)
	upd.DireccionEnvio = strings.TrimSpace(upd.DireccionEnvio)
	if upd.FechaNacimiento != nil {
		trimmed := strings.TrimSpace(*upd.FechaNacimiento)
		if trimmed == "" {
			upd.FechaNacimiento = nil
		} else {
			upd.FechaNacimiento = &trimmed
		}
	}

	p, err := s.backend.UpdateProfile(ctx, upd)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	return p, nil
}
