package engine

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omnidex/route-engine/models"
)

var execLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	execLog = zerolog.New(out).With().Timestamp().Str("component", "executor").Logger()
}

// Coordinator turns an accepted plan selection into a live provider order.
// This is the one component with an external side effect: it is invoked once
// per explicit user confirmation, and the caller must not re-submit after a
// timeout without the user confirming again.
type Coordinator struct {
	registry *Registry
	resolver *AssetResolver
	bridge   BridgeClient
}

func NewCoordinator(registry *Registry, resolver *AssetResolver, bridge BridgeClient) *Coordinator {
	return &Coordinator{registry: registry, resolver: resolver, bridge: bridge}
}

// Execute creates the provider exchange order and returns the execution
// record with the deposit (payin) and payout addresses.
func (c *Coordinator) Execute(ctx context.Context, req models.ExecuteRequest) (*models.ExecutionRecord, *PlanError) {
	if req.Provider == "" || !strings.EqualFold(req.Provider, c.bridge.Name()) {
		return nil, planErr(CodeInvalidRequest, "unknown provider %q", req.Provider)
	}

	fromNet, ok := c.registry.Lookup(req.FromNetworkID)
	if !ok {
		return nil, planErr(CodeUnknownNetwork, "unknown source network %q", req.FromNetworkID)
	}
	toNet, ok := c.registry.Lookup(req.ToNetworkID)
	if !ok {
		return nil, planErr(CodeUnknownNetwork, "unknown destination network %q", req.ToNetworkID)
	}

	fromAsset, ok := c.registry.Asset(fromNet.ID, req.FromTokenSymbol)
	if !ok {
		return nil, planErr(CodeUnsupportedAsset, "token %q is not listed on %q", req.FromTokenSymbol, fromNet.ID)
	}
	toAsset, ok := c.registry.Asset(toNet.ID, req.ToTokenSymbol)
	if !ok {
		return nil, planErr(CodeUnsupportedAsset, "token %q is not listed on %q", req.ToTokenSymbol, toNet.ID)
	}

	fromProviderAsset, ok := c.resolver.Resolve(c.bridge.Name(), fromNet.ID, fromAsset.Symbol)
	if !ok {
		return nil, planErr(CodeUnsupportedAsset, "%s on %s is not supported by %s", fromAsset.Symbol, fromNet.ID, c.bridge.Name())
	}
	toProviderAsset, ok := c.resolver.Resolve(c.bridge.Name(), toNet.ID, toAsset.Symbol)
	if !ok {
		return nil, planErr(CodeUnsupportedAsset, "%s on %s is not supported by %s", toAsset.Symbol, toNet.ID, c.bridge.Name())
	}

	payout := WalletFor(toNet.Family, req.User.EVMAddress, req.User.TronAddress, req.User.TonAddress)
	if payout == "" {
		return nil, planErr(CodeMissingWalletAddress, "no %s wallet address for the destination network", toNet.Family)
	}
	// Refund goes back to the source-family wallet when the user connected
	// one; the provider falls back to its own refund flow otherwise.
	refund := WalletFor(fromNet.Family, req.User.EVMAddress, req.User.TronAddress, req.User.TonAddress)

	amount, err := decimal.NewFromString(req.AmountHuman)
	if err != nil || !amount.IsPositive() {
		return nil, planErr(CodeInvalidRequest, "amount_human must be a positive decimal string")
	}

	order, err := c.bridge.CreateOrder(ctx, CreateOrderRequest{
		From:          fromProviderAsset,
		To:            toProviderAsset,
		AmountHuman:   amount,
		PayoutAddress: payout,
		RefundAddress: refund,
	})
	if err != nil {
		execLog.Error().Err(err).
			Str("from", fromProviderAsset.Ticker).
			Str("to", toProviderAsset.Ticker).
			Msg("Order creation failed")
		return nil, planErr(CodeTransactionCreateFailed, "provider could not create the order: %v", err)
	}

	execLog.Info().
		Str("tx_id", order.TxID).
		Str("payin", order.PayinAddress).
		Msg("Created provider order")

	return &models.ExecutionRecord{
		Provider:      c.bridge.Name(),
		TxID:          order.TxID,
		PayinAddress:  order.PayinAddress,
		PayoutAddress: order.PayoutAddress,
		From: models.Endpoint{
			NetworkID: fromNet.ID,
			Family:    string(fromNet.Family),
			TokenID:   fromAsset.Symbol,
			Decimals:  fromAsset.Decimals,
		},
		To: models.Endpoint{
			NetworkID: toNet.ID,
			Family:    string(toNet.Family),
			TokenID:   toAsset.Symbol,
			Decimals:  toAsset.Decimals,
		},
		Status:     StatusWaiting,
		NextAction: "send " + order.FromAmount.String() + " " + fromAsset.Symbol + " to the payin address",
	}, nil
}
