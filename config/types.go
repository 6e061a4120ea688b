package config

// Viper decodes through mapstructure, so every key carries both tags; the
// toml tag documents the file format, the mapstructure tag is what Unmarshal
// actually matches on.
type EngineConfig struct {
	// rpc configs
	Port int    `toml:"port" mapstructure:"port"`
	Host string `toml:"host" mapstructure:"host"`

	// CORS configs
	AllowedOrigins []string `toml:"allowed_origins" mapstructure:"allowed_origins"`

	// blunt per-IP guard for the whole surface
	RatePerMinute         int `toml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxConcurrentRequests int `toml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`

	EnableMetrics bool `toml:"enable_metrics" mapstructure:"enable_metrics"`

	// per-route business quotas, per caller
	PlanMaxRequests      int64 `toml:"plan_max_requests" mapstructure:"plan_max_requests"`
	PlanWindowSeconds    int64 `toml:"plan_window_seconds" mapstructure:"plan_window_seconds"`
	ExecuteMaxRequests   int64 `toml:"execute_max_requests" mapstructure:"execute_max_requests"`
	ExecuteWindowSeconds int64 `toml:"execute_window_seconds" mapstructure:"execute_window_seconds"`
	StatusMaxRequests    int64 `toml:"status_max_requests" mapstructure:"status_max_requests"`
	StatusWindowSeconds  int64 `toml:"status_window_seconds" mapstructure:"status_window_seconds"`

	// shared limiter store; empty means the per-process fallback only
	RedisURL string `toml:"redis_url" mapstructure:"redis_url"`

	// plan cache
	CacheTTLSeconds   int64 `toml:"cache_ttl_seconds" mapstructure:"cache_ttl_seconds"`
	CacheSweepSeconds int64 `toml:"cache_sweep_seconds" mapstructure:"cache_sweep_seconds"`

	// providers
	BridgeURL    string `toml:"bridge_url" mapstructure:"bridge_url"`
	BridgeAPIKey string `toml:"bridge_api_key" mapstructure:"bridge_api_key"`
	DexURL       string `toml:"dex_url" mapstructure:"dex_url"`
	DexAPIKey    string `toml:"dex_api_key" mapstructure:"dex_api_key"`
	PricesURL    string `toml:"prices_url" mapstructure:"prices_url"`
	PricesAPIKey string `toml:"prices_api_key" mapstructure:"prices_api_key"`

	// fairness thresholds in basis points
	SameFamilyMaxBps   int64 `toml:"same_family_max_bps" mapstructure:"same_family_max_bps"`
	CrossFamilyMaxBps  int64 `toml:"cross_family_max_bps" mapstructure:"cross_family_max_bps"`
	FairnessHardReject bool  `toml:"fairness_hard_reject" mapstructure:"fairness_hard_reject"`

	// EvmOnly answers cross-family intents with NOT_IMPLEMENTED
	EvmOnly bool `toml:"evm_only" mapstructure:"evm_only"`
}
