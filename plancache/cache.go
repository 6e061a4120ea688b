// Package plancache memoizes route-planning results for a short window so
// duplicate requests from UI polling and retries collapse into one upstream
// call. The cache is a latency optimization only: clearing it never changes
// which routes are valid.
package plancache

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/omnidex/route-engine/models"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "plancache").Logger()
}

// Signature builds the canonical cache key for a planning request. Keyed on
// content, never on client-supplied identifiers.
func Signature(intent models.SwapIntent) string {
	return strings.ToLower(strings.Join([]string{
		intent.FromNetworkID,
		intent.ToNetworkID,
		intent.FromToken,
		intent.ToToken,
		intent.AmountBase,
	}, ":"))
}

type entry struct {
	plan     *models.RoutePlan
	storedAt time.Time
}

// Cache is a TTL map from request signatures to built plans. Entries older
// than the TTL are treated as absent on read and evicted; a timer sweep
// bounds memory independent of traffic. The sweep only deletes expired
// entries, so it is safe alongside concurrent reads and writes.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	ttl        time.Duration
	sweepEvery time.Duration

	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	runMu     sync.Mutex
}

func New(ttl, sweepEvery time.Duration) *Cache {
	return &Cache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		sweepEvery: sweepEvery,
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

// Get returns the cached plan for a signature. Plans are immutable value
// objects, so the stored pointer is shared safely.
func (c *Cache) Get(sig string) (*models.RoutePlan, bool) {
	c.mu.RLock()
	e, ok := c.entries[sig]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Since(e.storedAt) > c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a fresh write may have landed.
		if cur, ok := c.entries[sig]; ok && time.Since(cur.storedAt) > c.ttl {
			delete(c.entries, sig)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.plan, true
}

// Set stores a freshly built plan. A newer write for the same signature
// supersedes in-flight results that land afterwards.
func (c *Cache) Set(sig string, plan *models.RoutePlan) {
	c.mu.Lock()
	c.entries[sig] = entry{plan: plan, storedAt: time.Now()}
	c.mu.Unlock()
}

// Len reports the current number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Start launches the background sweep. Owned by the cache's lifecycle:
// started on init, stopped on shutdown.
func (c *Cache) Start() {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		return
	}
	c.running = true
	c.runMu.Unlock()

	go func() {
		defer close(c.stoppedCh)
		ticker := time.NewTicker(c.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
	log.Debug().Dur("ttl", c.ttl).Dur("sweep_every", c.sweepEvery).Msg("Plan cache started")
}

// Stop halts the sweep goroutine and waits for it to exit.
func (c *Cache) Stop() {
	c.runMu.Lock()
	if !c.running {
		c.runMu.Unlock()
		return
	}
	c.running = false
	c.runMu.Unlock()

	close(c.stopCh)
	<-c.stoppedCh
}

func (c *Cache) sweep() {
	now := time.Now()
	c.mu.Lock()
	removed := 0
	for sig, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, sig)
			removed++
		}
	}
	c.mu.Unlock()
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("Swept expired plan entries")
	}
}
