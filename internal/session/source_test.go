package session

import (
	"os"
	"path/filepath"
	"testing"
)

// writeSession creates a session file at dir/.grillgauge/session.json.
func writeSession(t *testing.T, dir string, s Session) string {
	t.Helper()
	path := filepath.Join(dir, defaultFile)
	if err := Save(path, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

// chdir switches the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(origWd) })
}

func TestDiscoverFromEnvVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.json")
	if err := Save(path, Session{Email: "cook@example.com"}); err != nil {
		t.Fatal(err)
	}
	t.Setenv(envVar, path)

	got, err := Discover()
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if got != path {
		t.Errorf("Discover() = %q, want %q", got, path)
	}
}

func TestDiscoverEnvVarMissing(t *testing.T) {
	t.Setenv(envVar, "/nonexistent/path/session.json")

	if _, err := Discover(); err == nil {
		t.Error("Discover should fail when GGV_SESSION points to nonexistent file")
	}
}

func TestDiscoverFromCWD(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, Session{Email: "cook@example.com"})
	t.Setenv(envVar, "")
	t.Setenv("HOME", t.TempDir())
	chdir(t, dir)

	path, err := Discover()
	if err != nil {
		t.Fatalf("Discover from CWD: %v", err)
	}
	if filepath.Base(filepath.Dir(path)) != defaultDir {
		t.Errorf("expected path in %s/, got %q", defaultDir, path)
	}
}

func TestDiscoverFromParentDir(t *testing.T) {
	dir := t.TempDir()
	want := writeSession(t, dir, Session{Email: "cook@example.com"})
	child := filepath.Join(dir, "sub", "deep")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv(envVar, "")
	t.Setenv("HOME", t.TempDir())
	chdir(t, child)

	path, err := Discover()
	if err != nil {
		t.Fatalf("Discover from parent: %v", err)
	}
	// Resolve symlinks for comparison (macOS /var -> /private/var).
	resolvedPath, _ := filepath.EvalSymlinks(path)
	resolvedWant, _ := filepath.EvalSymlinks(want)
	if resolvedPath != resolvedWant {
		t.Errorf("Discover() = %q, want %q", path, want)
	}
}

func TestDiscoverFromHome(t *testing.T) {
	home := t.TempDir()
	want := writeSession(t, home, Session{Email: "cook@example.com"})
	t.Setenv(envVar, "")
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	path, err := Discover()
	if err != nil {
		t.Fatalf("Discover from home: %v", err)
	}
	if path != want {
		t.Errorf("Discover() = %q, want %q", path, want)
	}
}

func TestDiscoverNoSession(t *testing.T) {
	t.Setenv(envVar, "")
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	if _, err := Discover(); err == nil {
		t.Error("Discover should fail when no session exists")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	s, err := Load(filepath.Join(dir, "missing.json"))
	if err != nil || s.SignedIn() {
		t.Errorf("missing file = %+v, %v; want signed out", s, err)
	}

	path := filepath.Join(dir, "session.json")
	if err := Save(path, Session{Email: " cook@example.com ", Token: "tok"}); err != nil {
		t.Fatal(err)
	}
	s, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Email != "cook@example.com" || s.Token != "tok" {
		t.Errorf("Load = %+v", s)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("malformed session should fail")
	}
}

func TestHolder(t *testing.T) {
	var h Holder
	if !h.Set(Session{Email: "a@example.com", Token: "1"}) {
		t.Error("first sign-in should be a change")
	}
	if h.Set(Session{Email: "a@example.com", Token: "2"}) {
		t.Error("token refresh is not an identity change")
	}
	if h.Token() != "2" {
		t.Errorf("Token = %q", h.Token())
	}
	if !h.Set(Session{}) {
		t.Error("sign-out should be a change")
	}
}
