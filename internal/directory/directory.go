// Package directory defines the user directory the relay resolves senders
// against, plus an in-memory implementation.
package directory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/whatsapp-relay/internal/domain"
)

// ErrNotFound is returned by Get when no session exists for a user.
var ErrNotFound = errors.New("session not found")

// Directory stores sessions keyed by canonical user ID.
type Directory interface {
	// GetOrCreate returns the session for userID, creating it with attrs if
	// absent. The lookup and the insert are atomic with respect to other
	// callers. created reports whether this call inserted the session.
	GetOrCreate(ctx context.Context, userID string, attrs domain.SessionAttrs) (sess *domain.Session, created bool, err error)

	// Get returns the session for userID or ErrNotFound.
	Get(ctx context.Context, userID string) (*domain.Session, error)

	// List returns all sessions, most recently updated first.
	List(ctx context.Context) ([]*domain.Session, error)

	// Count returns the number of sessions.
	Count(ctx context.Context) (int, error)
}

// Memory is an in-memory Directory implementation.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session // user id → session
}

// NewMemory creates an in-memory directory.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*domain.Session)}
}

func (m *Memory) GetOrCreate(_ context.Context, userID string, attrs domain.SessionAttrs) (*domain.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[userID]; ok {
		return sess, false, nil
	}

	now := time.Now()
	sess := &domain.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Room:      attrs.Room,
		Language:  attrs.Language,
		Name:      attrs.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.sessions[userID] = sess
	return sess, true, nil
}

func (m *Memory) Get(_ context.Context, userID string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (m *Memory) List(_ context.Context) ([]*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	slices.SortFunc(out, func(a, b *domain.Session) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}
