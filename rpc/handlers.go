package rpc

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/omnidex/route-engine/engine"
	"github.com/omnidex/route-engine/models"
	"github.com/omnidex/route-engine/plancache"
	"github.com/omnidex/route-engine/ratelimit"
)

// Route names the limiter keys quotas on.
const (
	RoutePlan    = "plan"
	RouteExecute = "execute"
	RouteStatus  = "status"
)

// Handlers binds the engine components to the HTTP surface. All handlers
// answer with an envelope carrying ok, a fresh request_id and either the
// payload or a stable error code.
type Handlers struct {
	planner     *engine.Planner
	coordinator *engine.Coordinator
	tracker     *engine.Tracker
	registry    *engine.Registry
	cache       *plancache.Cache
	limiter     *ratelimit.Limiter
}

func NewHandlers(
	planner *engine.Planner,
	coordinator *engine.Coordinator,
	tracker *engine.Tracker,
	registry *engine.Registry,
	cache *plancache.Cache,
	limiter *ratelimit.Limiter,
) *Handlers {
	return &Handlers{
		planner:     planner,
		coordinator: coordinator,
		tracker:     tracker,
		registry:    registry,
		cache:       cache,
		limiter:     limiter,
	}
}

// handlePlan serves POST /v1/route/plan. Admission runs before the cache so
// a throttled caller cannot probe cached signatures for free.
func (h *Handlers) handlePlan(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	var intent models.SwapIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		plansTotal.WithLabelValues(engine.CodeInvalidRequest).Inc()
		writeJSON(w, http.StatusBadRequest, models.PlanResponse{
			OK:        false,
			RequestID: requestID,
			Error:     "malformed JSON body",
			ErrorCode: engine.CodeInvalidRequest,
		})
		return
	}

	if res := h.limiter.Check(r.Context(), RoutePlan, callerID(r)); !res.Allowed {
		throttledTotal.WithLabelValues(RoutePlan).Inc()
		w.Header().Set("Retry-After", strconv.FormatInt(res.RetryAfter, 10))
		writeJSON(w, http.StatusTooManyRequests, models.PlanResponse{
			OK:         false,
			RequestID:  requestID,
			Error:      "too many planning requests",
			ErrorCode:  engine.CodeRateLimited,
			RetryAfter: int(res.RetryAfter),
		})
		return
	}

	// The cache key is the request content; the envelope request_id stays
	// fresh per call even when the plan body is served from cache.
	sig := plancache.Signature(intent)
	if plan, ok := h.cache.Get(sig); ok {
		planCacheHits.Inc()
		plansTotal.WithLabelValues("ok").Inc()
		writeJSON(w, http.StatusOK, models.PlanResponse{OK: true, RequestID: requestID, RoutePlan: plan})
		return
	}
	planCacheMisses.Inc()

	plan, perr := h.planner.Plan(r.Context(), intent)
	if perr != nil {
		plansTotal.WithLabelValues(perr.Code).Inc()
		writeJSON(w, statusForCode(perr.Code), models.PlanResponse{
			OK:        false,
			RequestID: requestID,
			Error:     perr.Message,
			ErrorCode: perr.Code,
			Debug:     perr.Debug,
		})
		return
	}

	h.cache.Set(sig, plan)
	plansTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, models.PlanResponse{OK: true, RequestID: requestID, RoutePlan: plan})
}

// handleExecute serves POST /v1/route/execute. This endpoint has an external
// side effect and is never called by the engine on its own.
func (h *Handlers) handleExecute(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	var req models.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		executionsTotal.WithLabelValues(engine.CodeInvalidRequest).Inc()
		writeJSON(w, http.StatusBadRequest, models.ExecuteResponse{
			OK:        false,
			RequestID: requestID,
			Error:     "malformed JSON body",
			ErrorCode: engine.CodeInvalidRequest,
		})
		return
	}

	if res := h.limiter.Check(r.Context(), RouteExecute, callerID(r)); !res.Allowed {
		throttledTotal.WithLabelValues(RouteExecute).Inc()
		w.Header().Set("Retry-After", strconv.FormatInt(res.RetryAfter, 10))
		writeJSON(w, http.StatusTooManyRequests, models.ExecuteResponse{
			OK:         false,
			RequestID:  requestID,
			Error:      "too many execution requests",
			ErrorCode:  engine.CodeRateLimited,
			RetryAfter: int(res.RetryAfter),
		})
		return
	}

	record, perr := h.coordinator.Execute(r.Context(), req)
	if perr != nil {
		executionsTotal.WithLabelValues(perr.Code).Inc()
		writeJSON(w, statusForCode(perr.Code), models.ExecuteResponse{
			OK:        false,
			RequestID: requestID,
			Error:     perr.Message,
			ErrorCode: perr.Code,
		})
		return
	}

	executionsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, models.ExecuteResponse{OK: true, RequestID: requestID, Execution: record})
}

// handleStatus serves POST /v1/route/status and GET with query parameters.
func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	var req models.StatusRequest
	if r.Method == http.MethodGet {
		req.Provider = r.URL.Query().Get("provider")
		req.TxID = r.URL.Query().Get("tx_id")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.StatusResponse{
			OK:        false,
			RequestID: requestID,
			Error:     "malformed JSON body",
			ErrorCode: engine.CodeInvalidRequest,
		})
		return
	}

	if res := h.limiter.Check(r.Context(), RouteStatus, callerID(r)); !res.Allowed {
		throttledTotal.WithLabelValues(RouteStatus).Inc()
		w.Header().Set("Retry-After", strconv.FormatInt(res.RetryAfter, 10))
		writeJSON(w, http.StatusTooManyRequests, models.StatusResponse{
			OK:         false,
			RequestID:  requestID,
			Error:      "too many status requests",
			ErrorCode:  engine.CodeRateLimited,
			RetryAfter: int(res.RetryAfter),
		})
		return
	}

	status, perr := h.tracker.Poll(r.Context(), req.Provider, req.TxID)
	if perr != nil {
		writeJSON(w, statusForCode(perr.Code), models.StatusResponse{
			OK:        false,
			RequestID: requestID,
			Error:     perr.Message,
			ErrorCode: perr.Code,
		})
		return
	}

	writeJSON(w, http.StatusOK, models.StatusResponse{OK: true, RequestID: requestID, Status: status})
}

// handleNetworks serves GET /v1/networks.
func (h *Handlers) handleNetworks(w http.ResponseWriter, _ *http.Request) {
	networks := h.registry.Networks()
	out := make([]models.NetworkInfo, 0, len(networks))
	for _, n := range networks {
		out = append(out, models.NetworkInfo{
			NetworkID: n.ID,
			Family:    string(n.Family),
			Name:      n.Name,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "networks": out})
}

// handleAssets serves GET /v1/assets, optionally filtered by network_id.
func (h *Handlers) handleAssets(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("network_id")
	var out []models.AssetInfo
	for _, n := range h.registry.Networks() {
		if filter != "" && n.ID != filter {
			continue
		}
		for _, a := range n.Assets {
			out = append(out, models.AssetInfo{
				NetworkID: n.ID,
				Symbol:    a.Symbol,
				TokenRef:  a.TokenRef,
				Decimals:  a.Decimals,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "assets": out})
}

// statusForCode maps stable error codes onto HTTP classes. Deterministic
// client errors are 4xx; upstream-dependent failures are 502 so callers and
// proxies treat them as retryable.
func statusForCode(code string) int {
	switch code {
	case engine.CodePlanBuildFailed, engine.CodeTransactionCreateFailed, engine.CodeStatusFetchFailed:
		return http.StatusBadGateway
	case engine.CodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusBadRequest
	}
}

// callerID is the rate-limit identity: the client IP after the proxy-aware
// middlewares have rewritten RemoteAddr.
func callerID(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		Logger.Error().Err(err).Msg("Failed to encode response")
	}
}
