// Package session tracks whether the browser tab is logged in and keeps the
// stored auth file in step with that.
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"go-bosszp-automation/internal/scraper"
)

var ErrNoPage = errors.New("no page attached")

// usernameSelector is present in the header only for a logged-in user.
const usernameSelector = "[ka=header-username]"

type State int

const (
	Unknown State = iota
	Checking
	LoggedIn
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case LoggedIn:
		return "logged in"
	case LoggedOut:
		return "logged out"
	default:
		return "unknown"
	}
}

// Page is a scraper.Page whose context can be saved to disk.
type Page interface {
	scraper.Page
	SaveStorageState(path string) error
}

// AuthStore resolves and deletes files of the data directory; *store.Store
// implements it.
type AuthStore interface {
	Path(name string) string
	Delete(name string) error
}

type Tracker struct {
	mu       sync.Mutex
	page     Page
	homeURL  string
	auth     AuthStore
	authFile string
	state    State
}

// NewTracker tracks page; authFile names the storage state inside auth.
func NewTracker(page Page, homeURL string, auth AuthStore, authFile string) *Tracker {
	return &Tracker{page: page, homeURL: homeURL, auth: auth, authFile: authFile}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Tracker) LoggedIn() bool {
	return t.State() == LoggedIn
}

// Check looks for the username element, navigating to the home page first
// when navigate is set. Any failure counts as logged out.
func (t *Tracker) Check(navigate bool) (State, error) {
	if t.page == nil {
		return Unknown, ErrNoPage
	}
	t.set(Checking)

	if navigate {
		if err := t.page.Goto(t.homeURL); err != nil {
			log.Printf("⚠️ Could not open home page for login check: %v", err)
			t.set(LoggedOut)
			return LoggedOut, nil
		}
	}

	elements, err := t.page.Locate(usernameSelector)
	if err != nil {
		log.Printf("⚠️ Login check failed: %v", err)
		t.set(LoggedOut)
		return LoggedOut, nil
	}

	state := LoggedOut
	if len(elements) > 0 {
		state = LoggedIn
	}
	t.set(state)
	log.Printf("🔐 Login state: %s", state)
	return state, nil
}

// Persist saves the storage state when logged in and removes a stale auth
// file otherwise.
func (t *Tracker) Persist() error {
	if t.page == nil {
		return ErrNoPage
	}
	if t.LoggedIn() {
		path := t.auth.Path(t.authFile)
		if err := t.page.SaveStorageState(path); err != nil {
			return fmt.Errorf("persist auth: %w", err)
		}
		log.Printf("💾 Auth saved to %s", path)
		return nil
	}
	if err := t.auth.Delete(t.authFile); err != nil {
		return fmt.Errorf("remove auth: %w", err)
	}
	return nil
}

func (t *Tracker) set(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}
