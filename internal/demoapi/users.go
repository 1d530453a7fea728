package demoapi

import (
	"strings"
	"sync"

	"github.com/daviddao/grillgauge_viewer/internal/model"
)

// Directory is the demo server's user list. Users are created the first
// time they load their hubs.
type Directory struct {
	mu     sync.Mutex
	users  map[string]model.User
	nextID int64
}

// NewDirectory returns a directory pre-populated with emails.
func NewDirectory(emails ...string) *Directory {
	d := &Directory{users: make(map[string]model.User)}
	for _, e := range emails {
		d.Ensure(e)
	}
	return d
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Ensure returns the user for email, creating it if needed.
func (d *Directory) Ensure(email string) model.User {
	key := normalize(email)
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.users[key]; ok {
		return u
	}
	d.nextID++
	u := model.User{ID: d.nextID, Email: key}
	d.users[key] = u
	return u
}

// Lookup returns the user for email without creating one.
func (d *Directory) Lookup(email string) model.UserResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u, ok := d.users[normalize(email)]; ok {
		return model.FoundUser(u)
	}
	return model.NotFound()
}
