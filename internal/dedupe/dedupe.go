// Package dedupe suppresses repeated deliveries of the same Slack event.
//
// Slack re-sends an event when it does not see a 200 within three seconds,
// so the same event_id can arrive more than once. A Store remembers ids for a
// TTL and reports repeats.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL comfortably covers Slack's retry window.
const DefaultTTL = 10 * time.Minute

// Store records event ids.
type Store interface {
	// Seen records id and reports whether it had already been recorded.
	Seen(ctx context.Context, id string) (bool, error)
}

// RedisStore shares seen ids across server replicas.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a Store backed by client. Keys are prefix+id.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "skillcraft:slack:event:"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Connect parses url, pings the server and returns a client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Seen uses SET NX so concurrent deliveries agree on a single winner.
func (s *RedisStore) Seen(ctx context.Context, id string) (bool, error) {
	set, err := s.client.SetNX(ctx, s.prefix+id, time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record event %s: %w", id, err)
	}
	return !set, nil
}

// MemoryStore is the single-process fallback.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryStore returns an in-process Store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Seen records id. Expired ids are pruned on the way.
func (m *MemoryStore) Seen(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, exp := range m.seen {
		if now.After(exp) {
			delete(m.seen, k)
		}
	}

	if _, ok := m.seen[id]; ok {
		return true, nil
	}
	m.seen[id] = now.Add(m.ttl)
	return false, nil
}

// Len returns the number of remembered ids.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
