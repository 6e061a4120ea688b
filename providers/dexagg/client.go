// Package dexagg is the HTTP client for the same-family swap aggregator.
// The aggregator only covers EVM networks, addressed by chain id and token
// contract; quotes for any other family come back as pair-unsupported.
package dexagg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omnidex/route-engine/engine"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "dexagg").Logger()
}

const defaultTimeout = 8 * time.Second

// The aggregator addresses native coins with this pseudo-contract.
const nativeTokenAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// evmChainIDs maps internal network ids onto the aggregator's chain ids.
var evmChainIDs = map[string]int64{
	"ethereum": 1,
	"bsc":      56,
	"polygon":  137,
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements engine.DexClient over the aggregator's quote API.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) Name() string { return "dexagg" }

type quoteResponse struct {
	DstAmount string `json:"dstAmount"`
}

// SwapQuote fetches the best single-network route for a pair, in base units.
func (c *Client) SwapQuote(ctx context.Context, networkID string, from, to engine.Asset, amountBase decimal.Decimal) (*engine.DexQuote, error) {
	chainID, ok := evmChainIDs[strings.ToLower(networkID)]
	if !ok {
		return nil, fmt.Errorf("network %q: %w", networkID, engine.ErrPairUnsupported)
	}

	params := url.Values{}
	params.Set("src", tokenAddress(from))
	params.Set("dst", tokenAddress(to))
	params.Set("amount", amountBase.String())

	endpoint := fmt.Sprintf("%s/swap/v6.0/%d/quote?%s", c.cfg.BaseURL, chainID, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
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
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		// The aggregator answers 400 for pairs it cannot route.
		log.Debug().Str("network", networkID).Msg("Aggregator rejected the pair")
		return nil, fmt.Errorf("aggregator cannot route the pair: %w", engine.ErrPairUnsupported)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("aggregator returned %d: %w", resp.StatusCode, engine.ErrUpstream)
	}

	var body quoteResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	toAmount, err := decimal.NewFromString(body.DstAmount)
	if err != nil {
		return nil, fmt.Errorf("malformed dstAmount %q: %w", body.DstAmount, err)
	}

	return &engine.DexQuote{
		ToAmountBase: toAmount,
		RateID:       fmt.Sprintf("dexagg-%d-%d", chainID, time.Now().Unix()),
	}, nil
}

func tokenAddress(a engine.Asset) string {
	if a.TokenRef == "" {
		return nativeTokenAddress
	}
	return strings.ToLower(a.TokenRef)
}
