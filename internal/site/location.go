package site

import "sync"

// Location is the path the visitor is on. It is the navigator handed to a
// contact form, so a "back to home" shows up as a path change.
type Location struct {
	mu   sync.Mutex
	path string
}

// NewLocation starts at path.
func NewLocation(path string) *Location {
	return &Location{path: path}
}

// NavigateTo moves the visitor to path.
func (l *Location) NavigateTo(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.path = path
}

// CurrentPath returns the visitor's path.
func (l *Location) CurrentPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.path
}

// IsActive reports whether a menu link points at the current path. Only an
// exact match counts, so "/#features" is never active.
func IsActive(current string, link Link) bool {
	return current == link.Href
}
