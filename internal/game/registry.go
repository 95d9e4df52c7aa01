// internal/game/registry.go
package game

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry maps game names to live sessions. Sessions are created on first
// join; a finished session is replaced by a fresh one under the same name, so
// a game name can be reused once the previous run has fully drained.
type Registry struct {
	mu       sync.Mutex
	log      logrus.FieldLogger
	sessions map[string]*Session
}

func NewRegistry(logger logrus.FieldLogger) *Registry {
	return &Registry{
		log:      logger,
		sessions: make(map[string]*Session),
	}
}

// Session returns the live session for name, starting a new one if there is
// none or if the previous one has terminated.
func (r *Registry) Session(name string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[name]; ok && !s.Done() {
		return s
	}
	s := NewSession(name, r.log, nil)
	r.sessions[name] = s
	go s.Run()
	return s
}

// Len reports the number of tracked sessions, finished ones included until
// their name is reused.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
