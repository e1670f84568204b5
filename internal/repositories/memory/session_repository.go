package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"github.com/ArowuTest/bmd-member-registry/internal/repositories"
)

// Compile-time check to ensure SessionRepository implements the interface
var _ repositories.SessionRepository = (*SessionRepository)(nil)

// SessionRepository keeps sessions in process memory. Expired sessions are
// dropped when they are next read.
type SessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	now      func() time.Time
}

// NewSessionRepository creates an empty in-memory SessionRepository
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

// Save stores a copy of session
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	return nil
}

// Get returns a copy of the session
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repositories.ErrSessionNotFound
	}
	if s.Expired(r.now()) {
		delete(r.sessions, id)
		return nil, repositories.ErrSessionNotFound
	}
	return &s, nil
}

// Delete removes the session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return repositories.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}
