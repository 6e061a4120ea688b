package plancache_test

import (
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/omnidex/route-engine/models"
	"github.com/omnidex/route-engine/plancache"
)

func intent() models.SwapIntent {
	return models.SwapIntent{
		FromNetworkID: "Ethereum",
		ToNetworkID:   "tron",
		FromToken:     "USDC",
		ToToken:       "USDT",
		AmountBase:    "1000000",
	}
}

func TestSignature(t *testing.T) {
	sig := plancache.Signature(intent())
	assert.Equal(t, sig, "ethereum:tron:usdc:usdt:1000000")

	// Case differences collapse to one signature
	other := intent()
	other.FromNetworkID = "ETHEREUM"
	other.FromToken = "usdc"
	assert.Equal(t, plancache.Signature(other), sig)

	// Amount is part of the key
	other = intent()
	other.AmountBase = "2000000"
	assert.NotEqual(t, plancache.Signature(other), sig)
}

func TestCache_HitWithinTTL(t *testing.T) {
	cache := plancache.New(200*time.Millisecond, time.Minute)

	plan := &models.RoutePlan{RequestID: "req-1"}
	sig := plancache.Signature(intent())
	cache.Set(sig, plan)

	got, ok := cache.Get(sig)
	assert.True(t, ok)
	// Identical request inside the window returns the identical plan body,
	// request id included
	assert.Equal(t, got.RequestID, "req-1")
}

func TestCache_MissAfterExpiry(t *testing.T) {
	cache := plancache.New(50*time.Millisecond, time.Minute)

	sig := plancache.Signature(intent())
	cache.Set(sig, &models.RoutePlan{RequestID: "req-1"})

	time.Sleep(80 * time.Millisecond)

	_, ok := cache.Get(sig)
	assert.False(t, ok)
	// Stale read evicts the entry
	assert.Equal(t, cache.Len(), 0)
}

func TestCache_MissUnknownSignature(t *testing.T) {
	cache := plancache.New(time.Minute, time.Minute)

	_, ok := cache.Get("nosuch")
	assert.False(t, ok)
}

func TestCache_SetSupersedes(t *testing.T) {
	cache := plancache.New(time.Minute, time.Minute)
	sig := plancache.Signature(intent())

	cache.Set(sig, &models.RoutePlan{RequestID: "req-1"})
	cache.Set(sig, &models.RoutePlan{RequestID: "req-2"})

	got, ok := cache.Get(sig)
	assert.True(t, ok)
	assert.Equal(t, got.RequestID, "req-2")
	assert.Equal(t, cache.Len(), 1)
}

func TestCache_SweepRemovesExpired(t *testing.T) {
	cache := plancache.New(30*time.Millisecond, 20*time.Millisecond)
	cache.Start()
	defer cache.Stop()

	cache.Set("a", &models.RoutePlan{RequestID: "req-a"})
	cache.Set("b", &models.RoutePlan{RequestID: "req-b"})
	assert.Equal(t, cache.Len(), 2)

	// Sweep runs independent of reads
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, cache.Len(), 0)
}

func TestCache_StartStopIdempotent(t *testing.T) {
	cache := plancache.New(time.Minute, time.Minute)
	cache.Start()
	cache.Start()
	cache.Stop()
	cache.Stop()
}
