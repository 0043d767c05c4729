package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshStore tracks live refresh tokens by their jti so they can be
// revoked on logout.
type RefreshStore interface {
	Save(ctx context.Context, jti string, userID uint, ttl time.Duration) error
	Lookup(ctx context.Context, jti string) (userID uint, ok bool, err error)
	Delete(ctx context.Context, jti string) error
}

type memoryEntry struct {
	userID uint
	expiry time.Time
}

// MemoryRefreshStore keeps refresh tokens in process memory.
type MemoryRefreshStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryRefreshStore constructs an in-memory refresh store.
func NewMemoryRefreshStore() *MemoryRefreshStore {
	return &MemoryRefreshStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryRefreshStore) Save(_ context.Context, jti string, userID uint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = memoryEntry{userID: userID, expiry: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryRefreshStore) Lookup(_ context.Context, jti string) (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jti]
	if !ok {
		return 0, false, nil
	}
	if time.Now().After(e.expiry) {
		delete(s.entries, jti)
		return 0, false, nil
	}
	return e.userID, true, nil
}

func (s *MemoryRefreshStore) Delete(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, jti)
	return nil
}

// RedisRefreshStore stores one key per refresh token, expiring with it.
type RedisRefreshStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRefreshStore builds a Redis-backed refresh store.
func NewRedisRefreshStore(addr, password string) *RedisRefreshStore {
	return &RedisRefreshStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: "resenhas:refresh:",
	}
}

// Ping checks connectivity at startup.
func (s *RedisRefreshStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisRefreshStore) Close() error {
	return s.client.Close()
}

func (s *RedisRefreshStore) Save(ctx context.Context, jti string, userID uint, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+jti, strconv.FormatUint(uint64(userID), 10), ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (s *RedisRefreshStore) Lookup(ctx context.Context, jti string) (uint, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup refresh token: %w", err)
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt refresh entry %q: %w", jti, err)
	}
	return uint(id), true, nil
}

func (s *RedisRefreshStore) Delete(ctx context.Context, jti string) error {
	if err := s.client.Del(ctx, s.prefix+jti).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}
