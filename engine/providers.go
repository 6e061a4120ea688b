package engine

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Sentinel errors providers use so the planner can tell a deterministic
// rejection from a transient fetch failure. Anything not wrapped in one of
// these is treated as transient.
var (
	// ErrPairUnsupported means the provider recognises the assets but does
	// not trade the pair.
	ErrPairUnsupported = errors.New("pair not supported by provider")
	// ErrUpstream marks a clean non-2xx application error from a provider;
	// it is never retried.
	ErrUpstream = errors.New("upstream application error")
)

// BridgeQuote is a cross-family provider's estimate for a pair, in human
// units.
type BridgeQuote struct {
	EstimatedAmount decimal.Decimal
	MinAmount       decimal.Decimal
	MaxAmount       decimal.Decimal
	RateID          string
}

// CreateOrderRequest asks the bridging provider to open a real exchange
// order. This is the one call with an external side effect.
type CreateOrderRequest struct {
	From          ProviderAsset
	To            ProviderAsset
	AmountHuman   decimal.Decimal
	PayoutAddress string
	RefundAddress string
}

// BridgeOrder is the provider's record of a created exchange.
type BridgeOrder struct {
	TxID          string
	PayinAddress  string
	PayoutAddress string
	FromAmount    decimal.Decimal
	ToAmount      decimal.Decimal
}

// ProviderTxStatus is the raw status a provider reports for an order.
type ProviderTxStatus struct {
	TxID          string
	Status        string // provider-specific, normalized by the status tracker
	PayinAddress  string
	PayoutAddress string
	FromAmount    string
	ToAmount      string
}

// BridgeClient is the external venue capable of exchanging assets across
// families.
type BridgeClient interface {
	Name() string
	Estimate(ctx context.Context, from, to ProviderAsset, amount decimal.Decimal) (*BridgeQuote, error)
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*BridgeOrder, error)
	OrderStatus(ctx context.Context, txID string) (*ProviderTxStatus, error)
}

// DexQuote is a same-family aggregator's answer for a single-venue swap, in
// base units of the destination token.
type DexQuote struct {
	ToAmountBase decimal.Decimal
	RateID       string
}

// DexClient is the direct same-family quote aggregator.
type DexClient interface {
	Name() string
	SwapQuote(ctx context.Context, networkID string, from, to Asset, amountBase decimal.Decimal) (*DexQuote, error)
}
