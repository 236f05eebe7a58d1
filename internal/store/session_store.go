package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voiceorder/internal/logging"
	"voiceorder/internal/session"
)

// SessionStore is a session.Store over the sessions table. Expired rows
// read as absent and are purged lazily.
type SessionStore struct {
	db  *DB
	now func() time.Time
}

var _ session.Store = (*SessionStore)(nil)

// NewSessionStore wraps db. now nil means time.Now.
func NewSessionStore(db *DB, now func() time.Time) *SessionStore {
	if now == nil {
		now = time.Now
	}
	return &SessionStore{db: db, now: now}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	var data string
	err := s.db.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE id = ? AND expires_at > ?`, id, unixNano(s.now())).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return decodeSession(data)
}

func (s *SessionStore) Create(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	now := s.now()
	// An expired row under the same id is overwritten; a live one is kept.
	res, err := s.db.db.ExecContext(ctx, `
		INSERT INTO sessions (id, step, data, version, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			step = excluded.step, data = excluded.data, version = excluded.version,
			created_at = excluded.created_at, expires_at = excluded.expires_at
		WHERE sessions.expires_at <= ?`,
		sess.ID, string(sess.Step), string(data), sess.Version, unixNano(sess.CreatedAt), unixNano(now.Add(ttl)), unixNano(now))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return session.ErrVersionConflict
	}
	return nil
}

func (s *SessionStore) Update(ctx context.Context, sess *session.Session, expect int64, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	now := s.now()
	res, err := s.db.db.ExecContext(ctx, `
		UPDATE sessions SET step = ?, data = ?, version = ?, expires_at = ?
		WHERE id = ? AND version = ? AND expires_at > ?`,
		string(sess.Step), string(data), sess.Version, unixNano(now.Add(ttl)), sess.ID, expect, unixNano(now))
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	var live int
	if err := s.db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE id = ? AND expires_at > ?`, sess.ID, unixNano(now)).Scan(&live); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if live == 0 {
		return session.ErrSessionNotFound
	}
	return session.ErrVersionConflict
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) List(ctx context.Context) ([]*session.Session, error) {
	rows, err := s.db.db.QueryContext(ctx,
		`SELECT data FROM sessions WHERE expires_at > ? ORDER BY created_at, id`, unixNano(s.now()))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*session.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		sess, err := decodeSession(data)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("skipping undecodable session row: %v", err)
			continue
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// PurgeExpired deletes expired rows and reports how many went.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, unixNano(s.now()))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.StoreDebug("purged %d expired sessions", n)
	}
	return n, nil
}

func decodeSession(data string) (*session.Session, error) {
	var sess session.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}
