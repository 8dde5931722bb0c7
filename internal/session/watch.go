package session

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"tienda/internal/logging"
)

// watcher reacts to out-of-process changes to the session record, so a
// `tienda logout` in another terminal logs out a running TUI.
type watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
}

// Watch starts observing the session record's directory. Safe to skip;
// the store works without it.
func (s *Store) Watch() error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create session watcher: %w", err)
	}
	// Watch the directory: watching the file directly loses the watch
	// when the record is removed on logout.
	if err := fs.Add(filepath.Dir(s.path)); err != nil {
		fs.Close()
		return fmt.Errorf("failed to watch session directory: %w", err)
	}

	w := &watcher{fs: fs, done: make(chan struct{})}
	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()

	go s.watchLoop(w)
	return nil
}

// CloseWatch stops the watcher started by Watch.
func (s *Store) CloseWatch() {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		close(w.done)
		w.fs.Close()
	}
}

func (s *Store) watchLoop(w *watcher) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(s.path) {
				continue
			}
			s.handleRecordEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.SessionError("session watcher error: %v", err)
		}
	}
}

func (s *Store) handleRecordEvent(event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		if s.Current().Logged {
			logging.Session("session record removed externally, logging out")
			s.mu.Lock()
			s.state = State{}
			s.mu.Unlock()
			s.notify()
		}
	case event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create):
		rec := s.readRecord()
		if rec == nil {
			return
		}
		if s.Token() == rec.Token {
			return
		}
		logging.Session("session record changed externally, reloading")
		s.mu.Lock()
		s.state = State{Logged: true, Token: rec.Token, User: rec.User}
		s.mu.Unlock()
		s.notify()
	}
}
