package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"

	"github.com/omnidex/route-engine/engine"
	"github.com/omnidex/route-engine/models"
	"github.com/omnidex/route-engine/ratelimit"
)

// stubBridge satisfies engine.BridgeClient for handler-level tests.
type stubBridge struct {
	statusFunc func(txID string) (*engine.ProviderTxStatus, error)
}

func (s *stubBridge) Name() string { return "bridgex" }

func (s *stubBridge) Estimate(_ context.Context, _, _ engine.ProviderAsset, _ decimal.Decimal) (*engine.BridgeQuote, error) {
	return nil, engine.ErrPairUnsupported
}

func (s *stubBridge) CreateOrder(_ context.Context, _ engine.CreateOrderRequest) (*engine.BridgeOrder, error) {
	return nil, engine.ErrUpstream
}

func (s *stubBridge) OrderStatus(_ context.Context, txID string) (*engine.ProviderTxStatus, error) {
	return s.statusFunc(txID)
}

func newThrottledLimiter(routes ...string) *ratelimit.Limiter {
	limits := make(map[string]ratelimit.RouteLimit, len(routes))
	for _, r := range routes {
		limits[r] = ratelimit.RouteLimit{MaxRequests: 1, WindowSeconds: 60}
	}
	return ratelimit.New(ratelimit.NewLocalStore(), ratelimit.NewLocalStore(), limits)
}

func TestHandleExecute_ThrottledEnvelope(t *testing.T) {
	limiter := newThrottledLimiter(RouteExecute)
	h := NewHandlers(nil, nil, nil, nil, nil, limiter)

	// consume the caller's quota so the HTTP request lands throttled
	res := limiter.Check(context.Background(), RouteExecute, "192.0.2.1")
	assert.True(t, res.Allowed)

	req := httptest.NewRequest(http.MethodPost, "/v1/route/execute", strings.NewReader("{}"))
	req.RemoteAddr = "192.0.2.1:51234"
	rec := httptest.NewRecorder()
	h.handleExecute(rec, req)

	assert.Equal(t, rec.Code, http.StatusTooManyRequests)
	assert.True(t, rec.Header().Get("Retry-After") != "")

	var body models.ExecuteResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	t.Logf("Body: %+v", body)

	assert.False(t, body.OK)
	assert.Equal(t, body.ErrorCode, engine.CodeRateLimited)
	// the envelope carries retry_after, not just the header
	assert.True(t, body.RetryAfter >= 1)
}

func TestHandleStatus_ThrottledEnvelope(t *testing.T) {
	limiter := newThrottledLimiter(RouteStatus)
	h := NewHandlers(nil, nil, nil, nil, nil, limiter)

	res := limiter.Check(context.Background(), RouteStatus, "192.0.2.2")
	assert.True(t, res.Allowed)

	req := httptest.NewRequest(http.MethodGet, "/v1/route/status?provider=bridgex&tx_id=tx-1", nil)
	req.RemoteAddr = "192.0.2.2:51234"
	rec := httptest.NewRecorder()
	h.handleStatus(rec, req)

	assert.Equal(t, rec.Code, http.StatusTooManyRequests)

	var body models.StatusResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.False(t, body.OK)
	assert.Equal(t, body.ErrorCode, engine.CodeRateLimited)
	assert.True(t, body.RetryAfter >= 1)
}

func TestHandleStatus_GetQueryParams(t *testing.T) {
	bridge := &stubBridge{
		statusFunc: func(txID string) (*engine.ProviderTxStatus, error) {
			return &engine.ProviderTxStatus{TxID: txID, Status: "finished"}, nil
		},
	}
	tracker := engine.NewTracker(bridge)
	limiter := ratelimit.New(ratelimit.NewLocalStore(), ratelimit.NewLocalStore(), nil)
	h := NewHandlers(nil, nil, tracker, nil, nil, limiter)

	req := httptest.NewRequest(http.MethodGet, "/v1/route/status?provider=bridgex&tx_id=tx-42", nil)
	req.RemoteAddr = "192.0.2.3:51234"
	rec := httptest.NewRecorder()
	h.handleStatus(rec, req)

	assert.Equal(t, rec.Code, http.StatusOK)

	var body models.StatusResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	t.Logf("Body: %+v", body)

	assert.True(t, body.OK)
	assert.NotNil(t, body.Status)
	assert.Equal(t, body.Status.TxID, "tx-42")
	assert.Equal(t, body.Status.Status, engine.StatusCompleted)
}
