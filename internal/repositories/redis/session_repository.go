package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/bmd-member-registry/internal/models"
	"github.com/ArowuTest/bmd-member-registry/internal/repositories"
	"github.com/ArowuTest/bmd-member-registry/pkg/cache"
)

const sessionKeyPrefix = "bmd:session:"

// Compile-time check to ensure SessionRepository implements the interface
var _ repositories.SessionRepository = (*SessionRepository)(nil)

// SessionRepository stores sessions in Redis with a TTL matching their expiry
type SessionRepository struct {
	cache *cache.Redis
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(c *cache.Redis) *SessionRepository {
	return &SessionRepository{cache: c}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Save writes the session; an already expired session is not stored
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return repositories.ErrSessionNotFound
		}
	}
	if err := r.cache.Set(ctx, sessionKey(session.ID), session, ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get loads a session by id
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := r.cache.Get(ctx, sessionKey(id), &session); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, repositories.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &session, nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.cache.Delete(ctx, sessionKey(id)); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return repositories.ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
