package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"voiceorder/internal/logging"
)

// Options tunes session lifetime and write retries.
type Options struct {
	TTL          time.Duration // refreshed on every write; default 30m
	CompletedTTL time.Duration // lifetime once completed; default 5m
	MaxRetries   int           // compare-and-swap attempts per write; default 3
	Now          func() time.Time
}

func (o *Options) applyDefaults() {
	if o.TTL <= 0 {
		o.TTL = 30 * time.Minute
	}
	if o.CompletedTTL <= 0 {
		o.CompletedTTL = 5 * time.Minute
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Manager is the session state machine over a Store.
type Manager struct {
	store Store
	opts  Options
}

// NewManager wraps store.
func NewManager(store Store, opts Options) *Manager {
	opts.applyDefaults()
	return &Manager{store: store, opts: opts}
}

// Store exposes the underlying store.
func (m *Manager) Store() Store { return m.store }

// Create starts a new empty session at StepStarted.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := m.opts.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		Step:      StepStarted,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.opts.TTL),
		Version:   1,
		Data:      Data{Orders: []OrderLine{}},
	}
	if err := m.store.Create(ctx, s, m.opts.TTL); err != nil {
		logging.Get(logging.CategorySession).Error("Failed to create session: %v", err)
		return nil, fmt.Errorf("%w: create: %v", ErrUpdateFailed, err)
	}
	logging.Session("created session %s", s.ID)
	logging.AuditWithSession(s.ID).SessionCreated(m.opts.TTL)
	return s, nil
}

// Get loads a session, checking that its step is one of required when any
// are given.
func (m *Manager) Get(ctx context.Context, id string, required ...Step) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if err := checkStep(s, required); err != nil {
		return nil, err
	}
	return s, nil
}

func checkStep(s *Session, required []Step) error {
	if len(required) == 0 {
		return nil
	}
	for _, r := range required {
		if s.Step == r {
			return nil
		}
	}
	return &StepError{SessionID: s.ID, Current: s.Step, Allowed: required}
}

// Update applies fn to a copy of the session and writes it back with a
// compare-and-swap on Version, re-reading and re-applying fn on conflict.
// fn may change Step only along legal transitions. A returned error from fn
// aborts the write and is passed through.
func (m *Manager) Update(ctx context.Context, id string, required []Step, fn func(*Session) error) (*Session, error) {
	var lastErr error
	for attempt := 0; attempt < m.opts.MaxRetries; attempt++ {
		cur, err := m.Get(ctx, id, required...)
		if err != nil {
			return nil, err
		}
		if cur.Step == StepCompleted {
			return nil, &StepError{SessionID: id, Current: cur.Step, Allowed: required}
		}

		next := cur.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		if !CanTransition(cur.Step, next.Step) {
			return nil, &StepError{SessionID: id, Current: cur.Step, Target: next.Step}
		}
		if err := next.Validate(); err != nil {
			return nil, fmt.Errorf("%w: session %s: %v", ErrUpdateFailed, id, err)
		}

		ttl := m.opts.TTL
		if next.Step == StepCompleted {
			ttl = m.opts.CompletedTTL
		}
		now := m.opts.Now().UTC()
		next.ID = cur.ID
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = now
		next.ExpiresAt = now.Add(ttl)
		next.Version = cur.Version + 1

		err = m.store.Update(ctx, next, cur.Version, ttl)
		switch {
		case err == nil:
			if next.Step != cur.Step {
				logging.Session("session %s: %s -> %s", id, cur.Step, next.Step)
				logging.AuditWithSession(id).StepChanged(string(cur.Step), string(next.Step), next.Version)
			} else {
				logging.SessionDebug("session %s updated at %s (v%d)", id, next.Step, next.Version)
			}
			return next, nil
		case errors.Is(err, ErrVersionConflict):
			logging.SessionDebug("session %s: version conflict on attempt %d", id, attempt+1)
			lastErr = err
			continue
		case errors.Is(err, ErrSessionNotFound):
			return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		default:
			logging.Get(logging.CategorySession).Error("Failed to write session %s: %v", id, err)
			return nil, fmt.Errorf("%w: session %s: %v", ErrUpdateFailed, id, err)
		}
	}
	logging.SessionWarn("session %s: giving up after %d conflicting writes", id, m.opts.MaxRetries)
	return nil, fmt.Errorf("%w: session %s: %w", ErrUpdateFailed, id, lastErr)
}

// Extend refreshes the TTL without changing data.
func (m *Manager) Extend(ctx context.Context, id string) (*Session, error) {
	return m.Update(ctx, id, nil, func(*Session) error { return nil })
}

// Delete removes a session. Deleting an absent session is not an error.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	logging.Session("deleted session %s", id)
	logging.AuditWithSession(id).SessionDeleted()
	return nil
}

// Stats counts live sessions per step.
type Stats struct {
	Total  int          `json:"total_sessions"`
	ByStep map[Step]int `json:"by_step"`
}

// Stats scans the store.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list sessions: %w", err)
	}
	st := Stats{ByStep: make(map[Step]int, len(Steps))}
	for _, s := range Steps {
		st.ByStep[s] = 0
	}
	for _, s := range sessions {
		st.Total++
		st.ByStep[s.Step]++
	}
	return st, nil
}
