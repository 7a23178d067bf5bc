package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// CachedStore puts a Redis read-through cache in front of another Store.
// Only Get is cached. Every write drops the key, including writes that fail on a
// version conflict, and bumps the key's generation. A miss only fills the cache if
// the generation it saw before reading the backing store is still current, so a
// read that overlaps a write cannot put the older copy back. Redis errors are
// logged and the backing store answers instead.
type CachedStore struct {
	next    domain.Store
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	logger  types.Logger
	sfGroup singleflight.Group
	stats   CacheStats
}

// CacheStats counts cache traffic.
type CacheStats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Invalidations uint64 `json:"invalidations"`
	StaleFills    uint64 `json:"stale_fills"`
	Errors        uint64 `json:"errors"`
}

// fillScript sets KEYS[1] to ARGV[2] only while KEYS[2] still holds the generation
// ARGV[1] observed before the backing read. ARGV[3] is the TTL in milliseconds.
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or ''
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// minGenerationTTL keeps a generation marker alive longer than any backing read.
const minGenerationTTL = time.Minute

var (
	_ domain.Store  = (*CachedStore)(nil)
	_ domain.Pinger = (*CachedStore)(nil)
)

// NewCachedStore wraps next with a cache using client.
func NewCachedStore(next domain.Store, client *redis.Client, prefix string, ttl time.Duration, logger types.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Get serves from Redis when possible. Concurrent misses for one ID share a single
// backing read.
func (s *CachedStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	key := s.prefix + id

	data, err := s.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var t domain.Task
		if uerr := json.Unmarshal(data, &t); uerr == nil {
			atomic.AddUint64(&s.stats.Hits, 1)
			return &t, nil
		}
		atomic.AddUint64(&s.stats.Errors, 1)
		s.logger.Warn("Dropping undecodable cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		atomic.AddUint64(&s.stats.Errors, 1)
		s.logger.Warn("Cache get failed, reading from store", "key", key, "error", err)
	}
	atomic.AddUint64(&s.stats.Misses, 1)

	v, err, _ := s.sfGroup.Do(id, func() (any, error) {
		gen, genErr := s.client.Get(ctx, s.genKey(id)).Result()
		if errors.Is(genErr, redis.Nil) {
			gen, genErr = "", nil
		}
		t, err := s.next.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			s.fill(ctx, key, s.genKey(id), gen, t)
		}
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Task).Clone(), nil
}

// GetFresh reads from the backing store, skipping the cache.
func (s *CachedStore) GetFresh(ctx context.Context, id string) (*domain.Task, error) {
	return freshGet(ctx, s.next, id)
}

// ConditionalPut writes through and invalidates the key whatever the outcome.
func (s *CachedStore) ConditionalPut(ctx context.Context, id string, expectedVersion int64, t *domain.Task) (*domain.Task, error) {
	saved, err := s.next.ConditionalPut(ctx, id, expectedVersion, t)
	s.invalidate(ctx, id)
	return saved, err
}

// Delete deletes through and invalidates the key whatever the outcome.
func (s *CachedStore) Delete(ctx context.Context, id string, expectedVersion int64) error {
	err := s.next.Delete(ctx, id, expectedVersion)
	s.invalidate(ctx, id)
	return err
}

// Query is not cached.
func (s *CachedStore) Query(ctx context.Context, q domain.Query) (domain.Page[*domain.Task], error) {
	return s.next.Query(ctx, q)
}

// Ping checks Redis and the backing store.
func (s *CachedStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if p, ok := s.next.(domain.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (s *CachedStore) Stats() CacheStats {
	return CacheStats{
		Hits:          atomic.LoadUint64(&s.stats.Hits),
		Misses:        atomic.LoadUint64(&s.stats.Misses),
		Invalidations: atomic.LoadUint64(&s.stats.Invalidations),
		StaleFills:    atomic.LoadUint64(&s.stats.StaleFills),
		Errors:        atomic.LoadUint64(&s.stats.Errors),
	}
}

func (s *CachedStore) genKey(id string) string {
	return s.prefix + "gen:" + id
}

func (s *CachedStore) fill(ctx context.Context, key, genKey, gen string, t *domain.Task) {
	data, err := json.Marshal(t)
	if err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		return
	}
	stored, err := fillScript.Run(ctx, s.client, []string{key, genKey}, gen, data, s.ttl.Milliseconds()).Int()
	if err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		s.logger.Warn("Cache set failed", "key", key, "error", err)
		return
	}
	if stored == 0 {
		atomic.AddUint64(&s.stats.StaleFills, 1)
		s.logger.Debug("Skipped stale cache fill", "key", key, "version", t.Version)
	}
}

func (s *CachedStore) invalidate(ctx context.Context, id string) {
	key := s.prefix + id
	genKey := s.genKey(id)
	genTTL := max(2*s.ttl, minGenerationTTL)

	// detached: the key must be dropped even when the request was cancelled
	ctx = context.WithoutCancel(ctx)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, genTTL)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		atomic.AddUint64(&s.stats.Errors, 1)
		s.logger.Warn("Cache invalidation failed", "key", key, "error", err)
		return
	}
	atomic.AddUint64(&s.stats.Invalidations, 1)
}

// freshGet reads id from store, bypassing any cache layer it exposes.
func freshGet(ctx context.Context, store domain.Store, id string) (*domain.Task, error) {
	if fr, ok := store.(freshReader); ok {
		return fr.GetFresh(ctx, id)
	}
	return store.Get(ctx, id)
}

// freshReader is implemented by caching stores that can read past their cache.
type freshReader interface {
	GetFresh(ctx context.Context, id string) (*domain.Task, error)
}
