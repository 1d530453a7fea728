// Package session discovers and loads the signed-in GrillGauge session.
//
// The session file is written by the login flow and holds the user's email
// and API token. The dashboard never signs in itself; it follows whatever
// the file says and treats a missing file as signed out.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	defaultDir  = ".grillgauge"
	defaultFile = ".grillgauge/session.json"
	envVar      = "GGV_SESSION"
)

// Session is the signed-in identity. The zero value means signed out.
type Session struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// SignedIn reports whether the session carries an identity.
func (s Session) SignedIn() bool { return s.Email != "" }

// Discover finds the session file path.
// Priority: GGV_SESSION env var > .grillgauge/session.json in CWD > walk up
// parents > ~/.grillgauge/session.json.
func Discover() (string, error) {
	if env := os.Getenv(envVar); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env, nil
		}
		return "", fmt.Errorf("%s=%q: %w", envVar, env, os.ErrNotExist)
	}

	// Check CWD first.
	if _, err := os.Stat(defaultFile); err == nil {
		abs, err := filepath.Abs(defaultFile)
		if err != nil {
			return "", fmt.Errorf("resolve absolute path for %s: %w", defaultFile, err)
		}
		return abs, nil
	}

	// Walk up parent directories.
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, defaultFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if home, err := DefaultPath(); err == nil {
		if _, err := os.Stat(home); err == nil {
			return home, nil
		}
	}

	return "", fmt.Errorf("no session found (looked for %s)", defaultFile)
}

// DefaultPath is where a fresh login writes the session.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, defaultFile), nil
}

// Load reads the session at path. A missing file is a signed-out session,
// not an error.
func Load(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return Session{}, nil
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parse session %s: %w", path, err)
	}
	s.Email = strings.TrimSpace(s.Email)
	return s, nil
}

// Save writes s to path, creating the parent directory. Used by the demo
// login and tests.
func Save(path string, s Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, path)
}

// Holder is the process-wide current session, updated by the watcher and
// read by the API client for each request.
type Holder struct {
	mu sync.RWMutex
	s  Session
}

// Set replaces the current session and reports whether the identity
// changed.
func (h *Holder) Set(s Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	changed := h.s.Email != s.Email
	h.s = s
	return changed
}

// Get returns the current session.
func (h *Holder) Get() Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.s
}

// Token returns the current API token; it satisfies apiclient.TokenSource.
func (h *Holder) Token() string { return h.Get().Token }
