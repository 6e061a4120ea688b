// Package prices fetches reference spot prices used by the quote fairness
// check. Prices here are advisory: a missing symbol degrades the check to a
// warning, it never blocks planning.
package prices

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
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "prices").Logger()
}

const defaultTimeout = 6 * time.Second

// symbolIDs maps token symbols onto the price feed's coin ids.
var symbolIDs = map[string]string{
	"ETH":  "ethereum",
	"BNB":  "binancecoin",
	"POL":  "polygon-ecosystem-token",
	"TRX":  "tron",
	"TON":  "the-open-network",
	"USDT": "tether",
	"USDC": "usd-coin",
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements engine.PriceSource over a simple-price style feed.
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

// SpotPrices returns USD spot prices for the requested symbols. Symbols the
// feed does not know come back in missing; a partial answer is not an error.
func (c *Client) SpotPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, []string, error) {
	ids := make([]string, 0, len(symbols))
	idToSymbol := make(map[string]string, len(symbols))
	var missing []string
	for _, sym := range symbols {
		upper := strings.ToUpper(sym)
		id, ok := symbolIDs[upper]
		if !ok {
			missing = append(missing, upper)
			continue
		}
		ids = append(ids, id)
		idToSymbol[id] = upper
	}
	if len(ids) == 0 {
		return map[string]decimal.Decimal{}, missing, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/api/v3/simple/price?"+params.Encode(), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-cg-api-key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("price feed returned %d", resp.StatusCode)
	}

	var body map[string]map[string]json.Number
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, nil, fmt.Errorf("decode prices: %w", err)
	}

	out := make(map[string]decimal.Decimal, len(body))
	for id, sym := range idToSymbol {
		entry, ok := body[id]
		if !ok {
			missing = append(missing, sym)
			continue
		}
		usd, ok := entry["usd"]
		if !ok {
			missing = append(missing, sym)
			continue
		}
		price, err := decimal.NewFromString(usd.String())
		if err != nil || !price.IsPositive() {
			missing = append(missing, sym)
			continue
		}
		out[sym] = price
	}
	if len(missing) > 0 {
		log.Debug().Strs("missing", missing).Msg("Price feed returned a partial answer")
	}
	return out, missing, nil
}
