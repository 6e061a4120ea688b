package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	plansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "route_engine_plans_total",
		Help: "Route planning requests by outcome (ok or error code).",
	}, []string{"outcome"})

	planCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "route_engine_plan_cache_hits_total",
		Help: "Planning requests served from the plan cache.",
	})

	planCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "route_engine_plan_cache_misses_total",
		Help: "Planning requests that fell through to the planner.",
	})

	throttledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "route_engine_throttled_total",
		Help: "Requests rejected by the per-caller rate limiter, by route.",
	}, []string{"route"})

	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "route_engine_executions_total",
		Help: "Execution requests by outcome (ok or error code).",
	}, []string{"outcome"})
)
