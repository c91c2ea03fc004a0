package api

import (
	"sync"

	"github.com/google/uuid"

	"pharmadesk/m/internal/invoice"
)

// session is one live invoice wizard. Handlers lock it for the
// duration of each operation; the wizard itself is single-writer.
type session struct {
	mu     sync.Mutex
	wizard *invoice.Wizard
}

type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

func (r *sessionRegistry) Create(wizard *invoice.Wizard) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = &session{wizard: wizard}
	r.mu.Unlock()
	return id
}

func (r *sessionRegistry) Get(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *sessionRegistry) Delete(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
