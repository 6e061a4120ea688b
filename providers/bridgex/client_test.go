package bridgex_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"

	"github.com/omnidex/route-engine/engine"
	"github.com/omnidex/route-engine/providers/bridgex"
)

var (
	usdtTrc20 = engine.ProviderAsset{Ticker: "usdttrc20", Network: "trx"}
	usdtErc20 = engine.ProviderAsset{Ticker: "usdterc20", Network: "eth"}
)

func TestClient_Estimate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/v2/estimate")
		assert.Equal(t, r.URL.Query().Get("fromCurrency"), "usdttrc20")
		assert.Equal(t, r.URL.Query().Get("toNetwork"), "eth")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"estimatedAmount":"49.5","minAmount":"10","maxAmount":"100000","rateId":"rate-1"}`))
	}))
	defer server.Close()

	client := bridgex.NewClient(bridgex.Config{BaseURL: server.URL})

	quote, err := client.Estimate(context.Background(), usdtTrc20, usdtErc20, decimal.NewFromInt(50))
	assert.NoError(t, err)
	t.Logf("Quote: %+v", quote)

	assert.True(t, quote.EstimatedAmount.Equal(decimal.RequireFromString("49.5")))
	assert.True(t, quote.MinAmount.Equal(decimal.NewFromInt(10)))
	assert.True(t, quote.MaxAmount.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, quote.RateID, "rate-1")
}

func TestClient_EstimatePairUnsupported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"pair is inactive"}`))
	}))
	defer server.Close()

	client := bridgex.NewClient(bridgex.Config{BaseURL: server.URL})

	_, err := client.Estimate(context.Background(), usdtTrc20, usdtErc20, decimal.NewFromInt(50))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrPairUnsupported))
}

func TestClient_NoRetryOnCleanError(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"internal"}`))
	}))
	defer server.Close()

	client := bridgex.NewClient(bridgex.Config{BaseURL: server.URL})

	_, err := client.Estimate(context.Background(), usdtTrc20, usdtErc20, decimal.NewFromInt(50))
	assert.Error(t, err)

	var apiErr *bridgex.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apiErr.StatusCode, http.StatusInternalServerError)
	assert.True(t, errors.Is(err, engine.ErrUpstream))

	// A definitive venue answer is never retried
	assert.Equal(t, hits, 1)
}

func TestClient_CreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.Method, http.MethodPost)
		assert.Equal(t, r.URL.Path, "/v2/exchange")
		assert.Equal(t, r.Header.Get("x-api-key"), "secret")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order-9","payinAddress":"TPayin","payoutAddress":"0xPayout","fromAmount":"50","toAmount":"49.5"}`))
	}))
	defer server.Close()

	client := bridgex.NewClient(bridgex.Config{BaseURL: server.URL, APIKey: "secret"})

	order, err := client.CreateOrder(context.Background(), engine.CreateOrderRequest{
		From:          usdtTrc20,
		To:            usdtErc20,
		AmountHuman:   decimal.NewFromInt(50),
		PayoutAddress: "0xPayout",
	})
	assert.NoError(t, err)
	t.Logf("Order: %+v", order)

	assert.Equal(t, order.TxID, "order-9")
	assert.Equal(t, order.PayinAddress, "TPayin")
	assert.True(t, order.FromAmount.Equal(decimal.NewFromInt(50)))
}

func TestClient_OrderStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/v2/exchange/order-9")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order-9","status":"exchanging","payinAddress":"TPayin"}`))
	}))
	defer server.Close()

	client := bridgex.NewClient(bridgex.Config{BaseURL: server.URL})

	status, err := client.OrderStatus(context.Background(), "order-9")
	assert.NoError(t, err)
	assert.Equal(t, status.TxID, "order-9")
	assert.Equal(t, status.Status, "exchanging")
}
