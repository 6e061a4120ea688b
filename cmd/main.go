package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omnidex/route-engine/config"
	"github.com/omnidex/route-engine/engine"
	"github.com/omnidex/route-engine/plancache"
	"github.com/omnidex/route-engine/providers/bridgex"
	"github.com/omnidex/route-engine/providers/dexagg"
	"github.com/omnidex/route-engine/providers/prices"
	"github.com/omnidex/route-engine/ratelimit"
	"github.com/omnidex/route-engine/rpc"
)

var log zerolog.Logger

func init() {
	// Initialize zerolog with console writer
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// Share the logger with the RPC package
	rpc.SetLogger(log)
}

func main() {
	// Parse command line flags
	configFile := flag.String("config", "./engine-config.toml", "config file for the engine")
	fromEnv := flag.Bool("env", false, "load configuration from environment variables instead of a file")
	flag.Parse()

	log.Info().
		Str("config", *configFile).
		Bool("env_mode", *fromEnv).
		Msg("Starting Omnidex Route Engine")

	var configPath *string
	if !*fromEnv {
		configPath = configFile
	}
	cfg, err := config.LoadEngineConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Network and asset catalogue plus provider asset mappings
	registry := engine.NewRegistry(engine.DefaultNetworks())
	resolver := engine.NewAssetResolver(engine.DefaultResolverTable())

	// Provider clients
	bridge := bridgex.NewClient(bridgex.Config{
		BaseURL: cfg.BridgeURL,
		APIKey:  cfg.BridgeAPIKey,
	})
	dex := dexagg.NewClient(dexagg.Config{
		BaseURL: cfg.DexURL,
		APIKey:  cfg.DexAPIKey,
	})
	priceSource := prices.NewClient(prices.Config{
		BaseURL: cfg.PricesURL,
		APIKey:  cfg.PricesAPIKey,
	})

	fairnessCfg := engine.DefaultFairnessConfig()
	fairnessCfg.SameFamilyMaxBps = cfg.SameFamilyMaxBps
	fairnessCfg.CrossFamilyMaxBps = cfg.CrossFamilyMaxBps
	fairnessCfg.HardReject = cfg.FairnessHardReject
	fairness := engine.NewFairnessChecker(priceSource, fairnessCfg)

	plannerCfg := engine.PlannerConfig{
		EVMOnly:          cfg.EvmOnly,
		BridgeConfidence: decimal.NewFromFloat(0.9),
	}
	planner := engine.NewPlanner(registry, resolver, bridge, dex, fairness, plannerCfg)
	coordinator := engine.NewCoordinator(registry, resolver, bridge)
	tracker := engine.NewTracker(bridge)

	// Plan cache with its background sweep
	cache := plancache.New(
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
		time.Duration(cfg.CacheSweepSeconds)*time.Second,
	)
	cache.Start()

	// Per-route quota limiter: shared Redis store when configured, always a
	// per-process fallback underneath
	localStore := ratelimit.NewLocalStore()
	localStore.Start(time.Duration(cfg.CacheSweepSeconds) * time.Second)

	var primaryStore ratelimit.CounterStore = localStore
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid redis_url")
		}
		rdb = redis.NewClient(opts)
		primaryStore = ratelimit.NewRedisStore(rdb)
		log.Info().Msg("Rate limiter using shared Redis store")
	} else {
		log.Warn().Msg("No redis_url configured, rate limits are per-instance only")
	}

	limiter := ratelimit.New(primaryStore, localStore, map[string]ratelimit.RouteLimit{
		rpc.RoutePlan:    {MaxRequests: cfg.PlanMaxRequests, WindowSeconds: cfg.PlanWindowSeconds},
		rpc.RouteExecute: {MaxRequests: cfg.ExecuteMaxRequests, WindowSeconds: cfg.ExecuteWindowSeconds},
		rpc.RouteStatus:  {MaxRequests: cfg.StatusMaxRequests, WindowSeconds: cfg.StatusWindowSeconds},
	})

	handlers := rpc.NewHandlers(planner, coordinator, tracker, registry, cache, limiter)
	server := rpc.NewServer(buildServerConfig(cfg), handlers)

	// Setup signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			sigCh <- syscall.SIGTERM
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}

	cache.Stop()
	localStore.Stop()
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis client")
		}
	}
}

// buildServerConfig converts the loaded EngineConfig to rpc.ServerConfig
func buildServerConfig(cfg *config.EngineConfig) *rpc.ServerConfig {
	serverConfig := &rpc.ServerConfig{
		Address:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics,
	}

	// Set rate limiting if configured
	if cfg.RatePerMinute > 0 {
		serverConfig.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		serverConfig.MaxConcurrentRequests = &cfg.MaxConcurrentRequests
	}

	return serverConfig
}
