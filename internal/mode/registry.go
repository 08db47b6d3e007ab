// Package mode holds the process-wide selection of the active provider
// variant. The selection is shared by every client: a successful Set from
// any request changes what all subsequent requests use. In-flight relays
// are unaffected because they snapshot a provider at request start.
package mode

import (
	"sync"

	"PrettyChat/internal/config"
)

// Registry guards the single active mode value.
type Registry struct {
	mu     sync.Mutex
	active string
}

// NewRegistry creates a registry starting in the given mode. Unknown names
// fall back to the mock variant.
func NewRegistry(initial string) *Registry {
	if !config.ValidMode(initial) {
		initial = config.ModeMock
	}
	return &Registry{active: initial}
}

// Get returns the currently active mode name.
func (r *Registry) Get() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Set updates the active mode and returns the new value. Names outside the
// fixed variant set are rejected silently: the prior value is returned and
// nothing changes.
func (r *Registry) Set(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if config.ValidMode(name) {
		r.active = name
	}
	return r.active
}
