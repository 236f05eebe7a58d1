package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// KeyPrefix prefixes session ids in key-value stores.
const KeyPrefix = "session:"

// Key returns the store key for a session id.
func Key(id string) string { return KeyPrefix + id }

// Store persists sessions with a per-session TTL.
//
// Create and Update receive the session with Version already set to its new
// value; Update applies only if the stored version equals expect.
type Store interface {
	// Get returns ErrSessionNotFound for absent or expired sessions.
	Get(ctx context.Context, id string) (*Session, error)
	// Create fails with ErrVersionConflict if the id is taken.
	Create(ctx context.Context, s *Session, ttl time.Duration) error
	// Update fails with ErrVersionConflict when the stored version differs
	// from expect and ErrSessionNotFound when the session is gone.
	Update(ctx context.Context, s *Session, expect int64, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	// List returns every live session.
	List(ctx context.Context) ([]*Session, error)
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	s       *Session
	expires time.Time
}

// NewMemoryStore returns an empty store. now nil means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now, sessions: make(map[string]memoryEntry)}
}

func (m *MemoryStore) live(id string) (memoryEntry, bool) {
	e, ok := m.sessions[id]
	if !ok {
		return e, false
	}
	if !m.now().Before(e.expires) {
		delete(m.sessions, id)
		return e, false
	}
	return e, true
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.s.Clone(), nil
}

func (m *MemoryStore) Create(ctx context.Context, s *Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(s.ID); ok {
		return ErrVersionConflict
	}
	m.sessions[s.ID] = memoryEntry{s: s.Clone(), expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, s *Session, expect int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(s.ID)
	if !ok {
		return ErrSessionNotFound
	}
	if e.s.Version != expect {
		return ErrVersionConflict
	}
	m.sessions[s.ID] = memoryEntry{s: s.Clone(), expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.sessions))
	for id := range m.sessions {
		if e, ok := m.live(id); ok {
			out = append(out, e.s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
