package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/fadedpez/numberledger/pkg/entities"
)

// MemoryStore implements Store in process memory
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]Session
}

// NewMemoryStore creates a session store whose entries live for ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]Session),
	}
}

// Begin opens or replaces the actor's session
func (m *MemoryStore) Begin(ctx context.Context, actorID int64, wallet entities.WalletName) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	session := Session{
		ActorID:   actorID,
		Wallet:    wallet,
		StartedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[actorID] = session
	return &session, nil
}

// Get returns the actor's live session
func (m *MemoryStore) Get(ctx context.Context, actorID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[actorID]
	if !ok {
		return nil, nil
	}
	if !m.now().Before(session.ExpiresAt) {
		delete(m.sessions, actorID)
		return nil, nil
	}
	return &session, nil
}

// End removes the actor's session
func (m *MemoryStore) End(ctx context.Context, actorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, actorID)
	return nil
}

// Sweep evicts expired sessions and returns how many it removed
func (m *MemoryStore) Sweep(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for actorID, session := range m.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(m.sessions, actorID)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
