package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tienda/internal/api"
)

// fakeValidator scripts the /validar response.
type fakeValidator struct {
	creds *api.Credentials
	err   error
	calls int
}

func (f *fakeValidator) Validate(ctx context.Context, token string) (*api.Credentials, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.creds, nil
}

func sessionPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func writeTestRecord(t *testing.T, path string, rec Record) {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write record: %v", err)
	}
}

func TestInitWithoutRecord(t *testing.T) {
	s := NewStore(sessionPath(t), &fakeValidator{})
	state := s.Init()
	if state.Logged {
		t.Fatal("expected logged-out state with no record")
	}
}

func TestInitRestoresCachedSession(t *testing.T) {
	path := sessionPath(t)
	writeTestRecord(t, path, Record{
		Token: "cached-token",
		User:  api.User{UserID: 3, Email: "ana@example.com"},
	})

	v := &fakeValidator{}
	s := NewStore(path, v)
	state := s.Init()

	if !state.Logged || state.Token != "cached-token" {
		t.Fatalf("expected optimistic login from cache, got %+v", state)
	}
	if v.calls != 0 {
		t.Fatal("Init must not touch the network")
	}
}

func TestRevalidateReplacesUserAndRepersists(t *testing.T) {
	path := sessionPath(t)
	writeTestRecord(t, path, Record{
		Token: "old-token",
		User:  api.User{UserID: 3, Nombre: "Stale"},
	})

	v := &fakeValidator{creds: &api.Credentials{
		Token: "new-token",
		User:  api.User{UserID: 3, Nombre: "Fresh", Email: "ana@example.com"},
	}}
	s := NewStore(path, v)
	s.Init()

	state := s.Revalidate(context.Background())
	if !state.Logged || state.Token != "new-token" || state.User.Nombre != "Fresh" {
		t.Fatalf("expected server view to win, got %+v", state)
	}

	// The record on disk must carry the server's view too
	s2 := NewStore(path, v)
	restored := s2.Init()
	if restored.Token != "new-token" || restored.User.Nombre != "Fresh" {
		t.Fatalf("re-persisted record wrong: %+v", restored)
	}
}

func TestRevalidateFailsClosed(t *testing.T) {
	path := sessionPath(t)
	writeTestRecord(t, path, Record{Token: "stale", User: api.User{UserID: 3}})

	v := &fakeValidator{err: &api.HTTPError{Status: http.StatusUnauthorized}}
	s := NewStore(path, v)
	s.Init()

	state := s.Revalidate(context.Background())
	if state.Logged {
		t.Fatal("401 on validation must log out")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("persisted record must be cleared on validation failure")
	}
	if v.calls != 1 {
		t.Fatalf("validation is terminal, never retried; calls=%d", v.calls)
	}
}

func TestRevalidateNetworkErrorFailsClosed(t *testing.T) {
	path := sessionPath(t)
	writeTestRecord(t, path, Record{Token: "stale", User: api.User{UserID: 3}})

	s := NewStore(path, &fakeValidator{err: errors.New("connection refused")})
	s.Init()

	if s.Revalidate(context.Background()).Logged {
		t.Fatal("network error on validation must log out, not retain")
	}
}

func TestLoginPersistsTokenAndUserTogether(t *testing.T) {
	path := sessionPath(t)
	s := NewStore(path, &fakeValidator{})
	s.Init()

	creds := &api.Credentials{Token: "t1", User: api.User{UserID: 9, Email: "b@example.com"}}
	if err := s.Login(creds); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("record not written: %v", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("record not valid JSON: %v", err)
	}
	if rec.Token == "" || rec.User.UserID == 0 {
		t.Fatalf("token and user must be persisted together: %+v", rec)
	}
}

func TestLoginRejectsMissingToken(t *testing.T) {
	s := NewStore(sessionPath(t), &fakeValidator{})
	if err := s.Login(&api.Credentials{User: api.User{UserID: 1}}); err == nil {
		t.Fatal("login without token must fail")
	}
	if s.Current().Logged {
		t.Fatal("state must stay logged out")
	}
}

func TestLogoutClearsStateAndRecord(t *testing.T) {
	path := sessionPath(t)
	s := NewStore(path, &fakeValidator{})
	s.Init()
	if err := s.Login(&api.Credentials{Token: "t", User: api.User{UserID: 1}}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	s.Logout()
	if s.Current().Logged {
		t.Fatal("expected logged-out state")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("record must be removed on logout")
	}
}

func TestSubscribeNotifiesOnChange(t *testing.T) {
	s := NewStore(sessionPath(t), &fakeValidator{})

	var got []bool
	cancel := s.Subscribe(func(st State) { got = append(got, st.Logged) })
	defer cancel()

	s.Init()
	s.Login(&api.Credentials{Token: "t", User: api.User{UserID: 1}})
	s.Logout()

	want := []bool{false, true, false}
	if len(got) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("notification %d: want logged=%v got %v", i, want[i], got[i])
		}
	}

	cancel()
	s.Login(&api.Credentials{Token: "t2", User: api.User{UserID: 1}})
	if len(got) != len(want) {
		t.Fatal("cancelled subscription must not fire")
	}
}

func TestHasServerIdentity(t *testing.T) {
	if (State{Logged: true}).HasServerIdentity() {
		t.Fatal("no user id means no server identity")
	}
	if !(State{Logged: true, User: api.User{UserID: 4}}).HasServerIdentity() {
		t.Fatal("logged in with id must have server identity")
	}
	if (State{User: api.User{UserID: 4}}).HasServerIdentity() {
		t.Fatal("logged out never has server identity")
	}
}

func TestWatchExternalLogout(t *testing.T) {
	path := sessionPath(t)
	s := NewStore(path, &fakeValidator{})
	s.Init()
	if err := s.Login(&api.Credentials{Token: "t", User: api.User{UserID: 1}}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	loggedOut := make(chan struct{}, 1)
	s.Subscribe(func(st State) {
		if !st.Logged {
			select {
			case loggedOut <- struct{}{}:
			default:
			}
		}
	})

	if err := s.Watch(); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer s.CloseWatch()

	// Simulate `tienda logout` from another process
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	select {
	case <-loggedOut:
	case <-time.After(3 * time.Second):
		t.Fatal("external record removal did not log out the store")
	}
}
