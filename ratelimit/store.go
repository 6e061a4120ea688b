package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore is the single operation the fixed-window limiter needs: an
// atomic increment that starts the expiry window on first touch. The
// limiter depends only on this interface, so multi-instance correctness is a
// property of the chosen store, not of the limiter.
type CounterStore interface {
	// Incr bumps the counter for key, arming the TTL to window on the first
	// increment, and returns the post-increment count plus the remaining
	// window.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, remaining time.Duration, err error)
}

// RedisStore backs the limiter with a shared Redis so the window counter is
// correct across concurrent process instances.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	count := incr.Val()
	remaining := ttl.Val()
	// A key without an expiry is either brand new or left over from a
	// crashed EXPIRE; arm it either way.
	if remaining < 0 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return count, window, err
		}
		remaining = window
	}
	return count, remaining, nil
}

type localBucket struct {
	count   int64
	resetAt time.Time
}

// LocalStore is the in-process fallback. It is explicitly weaker than the
// shared store: counts are correct only within one process.
type LocalStore struct {
	mu      sync.Mutex
	buckets map[string]*localBucket

	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	runMu     sync.Mutex
}

func NewLocalStore() *LocalStore {
	return &LocalStore{
		buckets:   make(map[string]*localBucket),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (s *LocalStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &localBucket{resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++
	return b.count, time.Until(b.resetAt), nil
}

// Start launches the periodic sweep that discards elapsed windows so the
// map stays bounded without relying on request traffic.
func (s *LocalStore) Start(sweepEvery time.Duration) {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}
	s.running = true
	s.runMu.Unlock()

	go func() {
		defer close(s.stoppedCh)
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *LocalStore) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	s.runMu.Unlock()

	close(s.stopCh)
	<-s.stoppedCh
}

func (s *LocalStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	for key, b := range s.buckets {
		if now.After(b.resetAt) {
			delete(s.buckets, key)
		}
	}
	s.mu.Unlock()
}
