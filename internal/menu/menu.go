// Package menu fetches the role-based navigation tree and reshapes it
// into the grouped structure the TUI renders.
package menu

import (
	"context"
	"sync"

	"tienda/internal/api"
	"tienda/internal/logging"
	"tienda/internal/session"
)

// EntryType distinguishes navigation entries from the markers
// interleaved between sections.
type EntryType string

const (
	EntryItem    EntryType = "item"
	EntryDivider EntryType = "divider"
	EntryGroup   EntryType = "group"
)

// Entry is one row of the reshaped navigation list.
type Entry struct {
	Type  EntryType
	Key   string
	Label string
	Icon  Icon
	Path  string
}

// section is one of the fixed parent buckets.
type section struct {
	parent string // the `padre` key the backend sends
	title  string
	key    string
}

// Fixed section order; items bucket under these, in this order.
var sections = []section{
	{parent: "Catalogos", title: "Catálogos", key: "catalogos"},
	{parent: "Gestiones", title: "Gestiones", key: "gestiones"},
	{parent: "Reportes", title: "Reportes", key: "reportes"},
	{parent: "Configuraciones", title: "Configuraciones", key: "configuraciones"},
}

// Backend is the slice of the API client the menu store needs.
type Backend interface {
	MenuItems(ctx context.Context) ([]api.MenuItem, error)
}

// Store owns the navigation state.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	loading bool
	err     string

	backend Backend
	session func() session.State
}

// NewStore creates a menu store gated on the given session.
func NewStore(backend Backend, sessionFn func() session.State) *Store {
	return &Store{backend: backend, session: sessionFn}
}

// Entries returns the current reshaped navigation list.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Err returns the last fetch error message, empty when none.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Fetch loads the navigation entries. Logged-out sessions get an empty
// list without error and without network traffic. Malformed responses
// surface as a store-level error with entries cleared.
func (s *Store) Fetch(ctx context.Context) error {
	st := s.session()
	if !st.Logged || st.Token == "" {
		s.mu.Lock()
		s.entries = nil
		s.err = ""
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	items, err := s.backend.MenuItems(ctx)
	if err != nil {
		logging.MenuError("fetch failed: %v", err)
		s.mu.Lock()
		s.entries = nil
		s.err = err.Error()
		s.loading = false
		s.mu.Unlock()
		return err
	}

	entries := organize(items)
	s.mu.Lock()
	s.entries = entries
	s.loading = false
	s.mu.Unlock()

	logging.Menu("menu loaded: %d entries", len(entries))
	return nil
}

// organize reshapes raw items: unparented items first in original
// order, then each populated section as divider + group header +
// bucketed items, in the fixed section order.
func organize(items []api.MenuItem) []Entry {
	bucketed := make(map[string][]Entry)
	var unparented []Entry

	known := make(map[string]bool, len(sections))
	for _, sec := range sections {
		known[sec.parent] = true
	}

	for _, item := range items {
		entry := Entry{
			Type:  EntryItem,
			Key:   item.Path,
			Label: item.Title,
			Icon:  ResolveIcon(item.Icon),
			Path:  item.Path,
		}
		if item.Padre != "" && known[item.Padre] {
			bucketed[item.Padre] = append(bucketed[item.Padre], entry)
		} else {
			unparented = append(unparented, entry)
		}
	}

	organized := append([]Entry(nil), unparented...)
	for _, sec := range sections {
		group := bucketed[sec.parent]
		if len(group) == 0 {
			continue
		}
		if len(organized) > 0 {
			organized = append(organized, Entry{
				Type: EntryDivider,
				Key:  "divider-" + sec.key,
			})
		}
		organized = append(organized, Entry{
			Type:  EntryGroup,
			Key:   "group-" + sec.key,
			Label: sec.title,
		})
		organized = append(organized, group...)
	}
	return organized
}
