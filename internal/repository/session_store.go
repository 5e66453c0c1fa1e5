package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"echoquiz-backend/internal/quiz"
)

var ErrSessionNotFound = errors.New("session not found")

// MemorySessionStore keeps sessions in process. Sessions idle for longer than
// ttl are evicted lazily on access and by Sweep.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*quiz.Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[uuid.UUID]*quiz.Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Create(ctx context.Context, s *quiz.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemorySessionStore) Get(ctx context.Context, id uuid.UUID) (*quiz.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

func (m *MemorySessionStore) Update(ctx context.Context, id uuid.UUID, fn func(s *quiz.Session) error) (*quiz.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	working := s.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	m.sessions[id] = working
	return working.Clone(), nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(id); err != nil {
		return err
	}
	delete(m.sessions, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemorySessionStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

func (m *MemorySessionStore) lookup(id uuid.UUID) (*quiz.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.expired(s) {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemorySessionStore) expired(s *quiz.Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}

const maxUpdateRetries = 5

// RedisSessionStore keeps each session as a JSON value with a sliding TTL.
// Updates use optimistic WATCH/MULTI transactions so replicas can share it.
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisSessionStore(redisClient *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{redis: redisClient, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return "quiz_session:" + id.String()
}

func (r *RedisSessionStore) Create(ctx context.Context, s *quiz.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	created, err := r.redis.SetNX(ctx, sessionKey(s.ID), data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if !created {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	return nil
}

func (r *RedisSessionStore) Get(ctx context.Context, id uuid.UUID) (*quiz.Session, error) {
	data, err := r.redis.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decodeSession(data)
}

func (r *RedisSessionStore) Update(ctx context.Context, id uuid.UUID, fn func(s *quiz.Session) error) (*quiz.Session, error) {
	key := sessionKey(id)
	var updated *quiz.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load session: %w", err)
		}

		s, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}

		encoded, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = s
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.redis.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("session %s: update conflicted %d times", id, maxUpdateRetries)
}

func (r *RedisSessionStore) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.redis.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func decodeSession(data []byte) (*quiz.Session, error) {
	var s quiz.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}
