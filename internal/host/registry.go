package host

import (
	"sort"
	"sync"

	"spicecomment/internal/session"
)

// SessionInfo is the public view of a live session.
type SessionInfo struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Mode  string `json:"mode"`
	Dirty bool   `json:"dirty"`
}

// Registry tracks the sessions of a listener.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session.Controller
	paths    map[string]string
	claimed  map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: map[string]*session.Controller{},
		paths:    map[string]string{},
		claimed:  map[string]bool{},
	}
}

func (r *Registry) add(c *session.Controller, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[c.ID] = c
	r.paths[c.ID] = path
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	delete(r.paths, id)
}

// Claim reserves path for one session. It returns false when another
// session holds it.
func (r *Registry) Claim(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.claimed[path] {
		return false
	}
	r.claimed[path] = true
	return true
}

func (r *Registry) Release(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claimed, path)
}

func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for id, c := range r.sessions {
		_, view := c.Snapshot()
		out = append(out, SessionInfo{ID: id, Path: r.paths[id], Mode: view.Mode.String(), Dirty: view.Dirty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
