package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"realestate/internal/models"
)

// ErrSessionNotFound is returned (wrapped) for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps the login time of every active administrator session.
type SessionStore interface {
	// Save stores s until expiresAt.
	Save(ctx context.Context, s models.Session, expiresAt time.Time) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Delete(ctx context.Context, id string) error
	// PurgeBefore drops sessions that started before cutoff and reports how
	// many were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// InMemorySessionStore is a SessionStore for a single process.
type InMemorySessionStore struct {
	sessions map[string]models.Session
	mu       sync.RWMutex
}

func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]models.Session)}
}

func (s *InMemorySessionStore) Save(ctx context.Context, session models.Session, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	return nil
}

func (s *InMemorySessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	return &session, nil
}

func (s *InMemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *InMemorySessionStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.LoginTime.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
