package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voiceorder/internal/logging"
	"voiceorder/internal/session"
)

// RedisSessionStore keeps each session as a JSON string under
// "session:<id>" with a key TTL. Updates run under WATCH so a concurrent
// writer aborts the transaction.
type RedisSessionStore struct {
	client *redis.Client
}

var _ session.Store = (*RedisSessionStore)(nil)

// NewRedisSessionStore connects to url (redis://host:port/db).
func NewRedisSessionStore(ctx context.Context, url string) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	logging.Store("connected to redis at %s db %d", opts.Addr, opts.DB)
	return &RedisSessionStore{client: client}, nil
}

// NewRedisSessionStoreWithClient wraps an existing client.
func NewRedisSessionStoreWithClient(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// Close closes the client.
func (r *RedisSessionStore) Close() error { return r.client.Close() }

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*session.Session, error) {
	data, err := r.client.Get(ctx, session.Key(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeSession(data)
}

func (r *RedisSessionStore) Create(ctx context.Context, s *session.Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := r.client.SetNX(ctx, session.Key(s.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return session.ErrVersionConflict
	}
	return nil
}

func (r *RedisSessionStore) Update(ctx context.Context, s *session.Session, expect int64, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	key := session.Key(s.ID)

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return session.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		cur, err := decodeSession(raw)
		if err != nil {
			return err
		}
		if cur.Version != expect {
			return session.ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return session.ErrVersionConflict
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrVersionConflict):
		return err
	default:
		return fmt.Errorf("redis update: %w", err)
	}
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, session.Key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) List(ctx context.Context) ([]*session.Session, error) {
	var out []*session.Session
	iter := r.client.Scan(ctx, 0, session.KeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}
		s, err := decodeSession(data)
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("skipping undecodable session %s: %v", iter.Val(), err)
			continue
		}
		out = append(out, s)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return out, nil
}
