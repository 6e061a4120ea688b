// Package bridgex is the HTTP client for the cross-family bridging venue.
// It speaks the venue's JSON API and maps its responses onto the engine's
// provider contracts.
package bridgex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	uberratelimit "go.uber.org/ratelimit"

	"github.com/omnidex/route-engine/engine"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "bridgex").Logger()
}

const (
	defaultTimeout = 10 * time.Second
	// Outbound request budget against the venue, requests per second.
	defaultOutboundRPS = 5
)

// APIError is a clean non-2xx answer from the venue. These are application
// errors and are never retried.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bridgex api error (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return engine.ErrUpstream
}

// Config holds the connection settings for the venue.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// OutboundRPS throttles requests toward the venue. Zero means the
	// default budget.
	OutboundRPS int
}

// Client implements engine.BridgeClient over the venue's REST API. All
// calls pass through an outbound throttle and a circuit breaker, so a venue
// outage fails fast instead of tying up request handlers.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter uberratelimit.Limiter
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	rps := cfg.OutboundRPS
	if rps <= 0 {
		rps = defaultOutboundRPS
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "bridgex",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		limiter: uberratelimit.New(rps),
	}
}

func (c *Client) Name() string { return "bridgex" }

type estimateResponse struct {
	EstimatedAmount string `json:"estimatedAmount"`
	MinAmount       string `json:"minAmount"`
	MaxAmount       string `json:"maxAmount"`
	RateID          string `json:"rateId"`
}

// Estimate fetches the venue's quote for a pair in human units.
func (c *Client) Estimate(ctx context.Context, from, to engine.ProviderAsset, amount decimal.Decimal) (*engine.BridgeQuote, error) {
	path := fmt.Sprintf("/v2/estimate?fromCurrency=%s&fromNetwork=%s&toCurrency=%s&toNetwork=%s&fromAmount=%s",
		from.Ticker, from.Network, to.Ticker, to.Network, amount.String())

	var resp estimateResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, mapPairError(err)
	}

	quote, err := parseQuote(resp)
	if err != nil {
		return nil, fmt.Errorf("malformed estimate from venue: %w", err)
	}
	return quote, nil
}

func parseQuote(resp estimateResponse) (*engine.BridgeQuote, error) {
	estimated, err := decimal.NewFromString(resp.EstimatedAmount)
	if err != nil {
		return nil, fmt.Errorf("estimatedAmount %q: %w", resp.EstimatedAmount, err)
	}
	minAmount, err := decimal.NewFromString(resp.MinAmount)
	if err != nil {
		return nil, fmt.Errorf("minAmount %q: %w", resp.MinAmount, err)
	}
	var maxAmount decimal.Decimal
	if resp.MaxAmount != "" {
		maxAmount, err = decimal.NewFromString(resp.MaxAmount)
		if err != nil {
			return nil, fmt.Errorf("maxAmount %q: %w", resp.MaxAmount, err)
		}
	}
	return &engine.BridgeQuote{
		EstimatedAmount: estimated,
		MinAmount:       minAmount,
		MaxAmount:       maxAmount,
		RateID:          resp.RateID,
	}, nil
}

type createOrderBody struct {
	FromCurrency  string `json:"fromCurrency"`
	FromNetwork   string `json:"fromNetwork"`
	ToCurrency    string `json:"toCurrency"`
	ToNetwork     string `json:"toNetwork"`
	FromAmount    string `json:"fromAmount"`
	PayoutAddress string `json:"address"`
	RefundAddress string `json:"refundAddress,omitempty"`
}

type orderResponse struct {
	ID            string `json:"id"`
	PayinAddress  string `json:"payinAddress"`
	PayoutAddress string `json:"payoutAddress"`
	FromAmount    string `json:"fromAmount"`
	ToAmount      string `json:"toAmount"`
}

// CreateOrder opens a live exchange order. This call has a side effect and
// is therefore never retried by the client; retrying is the user's explicit
// decision.
func (c *Client) CreateOrder(ctx context.Context, req engine.CreateOrderRequest) (*engine.BridgeOrder, error) {
	body := createOrderBody{
		FromCurrency:  req.From.Ticker,
		FromNetwork:   req.From.Network,
		ToCurrency:    req.To.Ticker,
		ToNetwork:     req.To.Network,
		FromAmount:    req.AmountHuman.String(),
		PayoutAddress: req.PayoutAddress,
		RefundAddress: req.RefundAddress,
	}

	var resp orderResponse
	if err := c.callOnce(ctx, http.MethodPost, "/v2/exchange", body, &resp); err != nil {
		return nil, err
	}

	fromAmount, _ := decimal.NewFromString(resp.FromAmount)
	toAmount, _ := decimal.NewFromString(resp.ToAmount)
	return &engine.BridgeOrder{
		TxID:          resp.ID,
		PayinAddress:  resp.PayinAddress,
		PayoutAddress: resp.PayoutAddress,
		FromAmount:    fromAmount,
		ToAmount:      toAmount,
	}, nil
}

type statusResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PayinAddress  string `json:"payinAddress"`
	PayoutAddress string `json:"payoutAddress"`
	FromAmount    string `json:"fromAmount"`
	ToAmount      string `json:"toAmount"`
}

// OrderStatus fetches the raw provider status for an order.
func (c *Client) OrderStatus(ctx context.Context, txID string) (*engine.ProviderTxStatus, error) {
	var resp statusResponse
	if err := c.call(ctx, http.MethodGet, "/v2/exchange/"+txID, nil, &resp); err != nil {
		return nil, err
	}
	return &engine.ProviderTxStatus{
		TxID:          resp.ID,
		Status:        resp.Status,
		PayinAddress:  resp.PayinAddress,
		PayoutAddress: resp.PayoutAddress,
		FromAmount:    resp.FromAmount,
		ToAmount:      resp.ToAmount,
	}, nil
}

// call performs a read-only request with a single retry on transport-class
// failures. Clean non-2xx answers are returned as *APIError and never
// retried: the venue already gave a definitive answer.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	err := c.callOnce(ctx, method, path, body, out)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) || ctx.Err() != nil {
		return err
	}
	log.Debug().Err(err).Str("path", path).Msg("Transport error, retrying once")
	return c.callOnce(ctx, method, path, body, out)
}

func (c *Client) callOnce(ctx context.Context, method, path string, body, out any) error {
	c.limiter.Take()

	_, err := c.breaker.Execute(func() (any, error) {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.cfg.APIKey != "" {
			req.Header.Set("x-api-key", c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: extractMessage(raw)}
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

func extractMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// mapPairError turns the venue's "pair unavailable" answers into the
// engine's sentinel so the planner can reject deterministically.
func mapPairError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		if strings.Contains(msg, "pair") && (strings.Contains(msg, "inactive") ||
			strings.Contains(msg, "unavailable") || strings.Contains(msg, "not found")) {
			return fmt.Errorf("%s: %w", apiErr.Message, engine.ErrPairUnsupported)
		}
	}
	return err
}
