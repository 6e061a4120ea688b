package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadEngineConfig loads the engine config from the given path
func LoadEngineConfig(configPath *string) (*EngineConfig, error) {
	v := viper.New()

	if configPath == nil {
		// if no file expect envs
		config, err := loadEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	} else {
		config, err := loadFile(v, *configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load file config: %w", err)
		}
		return config, nil
	}
}

func loadEnv(v *viper.Viper) (*EngineConfig, error) {
	// godot might fail if .env file is missing but
	// env can be applied through docker, systemd or other means, so skip error
	_ = godotenv.Load()
	v.SetEnvPrefix("ROUTE_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config EngineConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindEnvKeys binds each config key to its env var so Unmarshal sees env values
// when no config file is loaded (env-only mode).
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests", "enable_metrics",
		"plan_max_requests", "plan_window_seconds",
		"execute_max_requests", "execute_window_seconds",
		"status_max_requests", "status_window_seconds",
		"redis_url", "cache_ttl_seconds", "cache_sweep_seconds",
		"bridge_url", "bridge_api_key", "dex_url", "dex_api_key",
		"prices_url", "prices_api_key",
		"same_family_max_bps", "cross_family_max_bps", "fairness_hard_reject",
		"evm_only",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadFile(v *viper.Viper, configPath string) (*EngineConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config EngineConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}

	return &config, nil
}

func verifyConfig(config *EngineConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if config.Host == "" {
		return fmt.Errorf("host is required")
	}

	if len(config.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed_origins is required")
	}

	if config.BridgeURL == "" {
		return fmt.Errorf("bridge_url is required")
	}

	if config.DexURL == "" {
		return fmt.Errorf("dex_url is required")
	}

	if config.PricesURL == "" {
		return fmt.Errorf("prices_url is required")
	}

	// quotas and cache fall back to sane defaults instead of failing
	if config.PlanMaxRequests <= 0 {
		config.PlanMaxRequests = 30
	}
	if config.PlanWindowSeconds <= 0 {
		config.PlanWindowSeconds = 60
	}
	if config.ExecuteMaxRequests <= 0 {
		config.ExecuteMaxRequests = 10
	}
	if config.ExecuteWindowSeconds <= 0 {
		config.ExecuteWindowSeconds = 60
	}
	if config.StatusMaxRequests <= 0 {
		config.StatusMaxRequests = 120
	}
	if config.StatusWindowSeconds <= 0 {
		config.StatusWindowSeconds = 60
	}
	// Quotes go stale fast; the cache window stays short so a cached plan
	// never carries a misleading price.
	if config.CacheTTLSeconds <= 0 {
		config.CacheTTLSeconds = 5
	}
	if config.CacheSweepSeconds <= 0 {
		config.CacheSweepSeconds = 60
	}
	if config.SameFamilyMaxBps <= 0 {
		config.SameFamilyMaxBps = 500
	}
	if config.CrossFamilyMaxBps <= 0 {
		config.CrossFamilyMaxBps = 1200
	}

	return nil
}
