package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/assert"

	"github.com/omnidex/route-engine/config"
)

const validConfig = `
port = 8080
host = "0.0.0.0"
allowed_origins = ["http://localhost:3000"]
rate_per_minute = 120
max_concurrent_requests = 200
enable_metrics = true

plan_max_requests = 30
plan_window_seconds = 60
execute_max_requests = 10
execute_window_seconds = 60
status_max_requests = 120
status_window_seconds = 60

redis_url = "redis://localhost:6379/0"
cache_ttl_seconds = 5
cache_sweep_seconds = 30

bridge_url = "https://bridge.example.com"
bridge_api_key = "bridge-key"
dex_url = "https://dex.example.com"
prices_url = "https://prices.example.com"

same_family_max_bps = 500
cross_family_max_bps = 1200
fairness_hard_reject = true
evm_only = true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine-config.toml")
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadEngineConfig_File(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := config.LoadEngineConfig(&path)
	assert.NoError(t, err)
	t.Logf("Config: %+v", cfg)

	assert.Equal(t, cfg.Port, 8080)
	assert.Equal(t, cfg.Host, "0.0.0.0")

	// Every snake_case key must survive the decode, not come back zero
	assert.Equal(t, len(cfg.AllowedOrigins), 1)
	assert.Equal(t, cfg.AllowedOrigins[0], "http://localhost:3000")
	assert.Equal(t, cfg.RatePerMinute, 120)
	assert.Equal(t, cfg.MaxConcurrentRequests, 200)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, cfg.PlanMaxRequests, int64(30))
	assert.Equal(t, cfg.ExecuteWindowSeconds, int64(60))
	assert.Equal(t, cfg.StatusMaxRequests, int64(120))
	assert.Equal(t, cfg.RedisURL, "redis://localhost:6379/0")
	assert.Equal(t, cfg.CacheTTLSeconds, int64(5))
	assert.Equal(t, cfg.BridgeURL, "https://bridge.example.com")
	assert.Equal(t, cfg.BridgeAPIKey, "bridge-key")
	assert.Equal(t, cfg.DexURL, "https://dex.example.com")
	assert.Equal(t, cfg.PricesURL, "https://prices.example.com")
	assert.Equal(t, cfg.SameFamilyMaxBps, int64(500))
	assert.Equal(t, cfg.CrossFamilyMaxBps, int64(1200))
	assert.True(t, cfg.FairnessHardReject)
	assert.True(t, cfg.EvmOnly)
}

func TestLoadEngineConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
port = 8080
host = "localhost"
allowed_origins = ["*"]
bridge_url = "https://bridge.example.com"
dex_url = "https://dex.example.com"
prices_url = "https://prices.example.com"
`)

	cfg, err := config.LoadEngineConfig(&path)
	assert.NoError(t, err)

	// Unset quotas and cache knobs pick up the defaults
	assert.Equal(t, cfg.PlanMaxRequests, int64(30))
	assert.Equal(t, cfg.PlanWindowSeconds, int64(60))
	assert.Equal(t, cfg.ExecuteMaxRequests, int64(10))
	assert.Equal(t, cfg.StatusMaxRequests, int64(120))
	assert.Equal(t, cfg.CacheTTLSeconds, int64(5))
	assert.Equal(t, cfg.CacheSweepSeconds, int64(60))
	assert.Equal(t, cfg.SameFamilyMaxBps, int64(500))
	assert.Equal(t, cfg.CrossFamilyMaxBps, int64(1200))
}

func TestLoadEngineConfig_MissingRequired(t *testing.T) {
	path := writeConfig(t, `
port = 8080
host = "localhost"
allowed_origins = ["*"]
`)

	_, err := config.LoadEngineConfig(&path)
	assert.Error(t, err)
	t.Logf("Error: %v", err)
}

func TestLoadEngineConfig_Env(t *testing.T) {
	t.Setenv("ROUTE_ENGINE_PORT", "9090")
	t.Setenv("ROUTE_ENGINE_HOST", "127.0.0.1")
	t.Setenv("ROUTE_ENGINE_ALLOWED_ORIGINS", "http://localhost:3000")
	t.Setenv("ROUTE_ENGINE_BRIDGE_URL", "https://bridge.example.com")
	t.Setenv("ROUTE_ENGINE_DEX_URL", "https://dex.example.com")
	t.Setenv("ROUTE_ENGINE_PRICES_URL", "https://prices.example.com")
	t.Setenv("ROUTE_ENGINE_EVM_ONLY", "true")

	cfg, err := config.LoadEngineConfig(nil)
	assert.NoError(t, err)
	t.Logf("Config: %+v", cfg)

	assert.Equal(t, cfg.Port, 9090)
	assert.Equal(t, cfg.Host, "127.0.0.1")
	assert.Equal(t, cfg.BridgeURL, "https://bridge.example.com")
	assert.True(t, cfg.EvmOnly)
}
