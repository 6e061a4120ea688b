// Package ratelimit enforces per-caller fixed-window quotas on the planning
// and execution routes. The window counters live in a pluggable store; with
// the Redis store the limits hold across every instance of the service.
package ratelimit

import (
	"context"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "ratelimit").Logger()
}

// RouteLimit is the quota for one route class.
type RouteLimit struct {
	MaxRequests   int64
	WindowSeconds int64
}

// Result is the admission decision. RetryAfter is in whole seconds, rounded
// up, and only set on rejection.
type Result struct {
	Allowed    bool
	RetryAfter int64
}

// Limiter applies fixed-window limits per (route, caller) pair. When the
// primary store errors the limiter degrades to a per-process fallback rather
// than failing the request: planning must stay available through a Redis
// outage even if the global quota briefly loosens.
type Limiter struct {
	store    CounterStore
	fallback CounterStore
	limits   map[string]RouteLimit

	degradedOnce sync.Once
}

func New(store CounterStore, fallback CounterStore, limits map[string]RouteLimit) *Limiter {
	return &Limiter{store: store, fallback: fallback, limits: limits}
}

// Check records one request against the caller's window and decides whether
// it may proceed. Routes without a configured limit are always admitted.
func (l *Limiter) Check(ctx context.Context, route, caller string) Result {
	limit, ok := l.limits[route]
	if !ok || limit.MaxRequests <= 0 {
		return Result{Allowed: true}
	}

	window := time.Duration(limit.WindowSeconds) * time.Second
	key := "rl:" + route + ":" + strings.ToLower(caller)

	count, remaining, err := l.store.Incr(ctx, key, window)
	if err != nil {
		l.degradedOnce.Do(func() {
			log.Warn().Err(err).Msg("Shared limiter store unavailable, using per-instance fallback")
		})
		count, remaining, err = l.fallback.Incr(ctx, key, window)
		if err != nil {
			// Both stores down; admit rather than block the whole API.
			return Result{Allowed: true}
		}
	}

	if count <= limit.MaxRequests {
		return Result{Allowed: true}
	}
	retryAfter := int64(math.Ceil(remaining.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return Result{Allowed: false, RetryAfter: retryAfter}
}
