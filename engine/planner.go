package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/omnidex/route-engine/models"
)

var plannerLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	plannerLog = zerolog.New(out).With().Timestamp().Str("component", "planner").Logger()
}

// Step kinds
const (
	StepSwap     = "swap"
	StepBridge   = "bridge"
	StepTransfer = "transfer"
	StepWrap     = "wrap"
	StepUnwrap   = "unwrap"
)

// PlannerConfig carries the routing toggles.
type PlannerConfig struct {
	// EVMOnly answers cross-family intents with NOT_IMPLEMENTED. The full
	// engine stays wired behind the toggle.
	EVMOnly bool
	// BridgeConfidence seeds the safety margin for cross-family routes;
	// same-venue swaps use full confidence.
	BridgeConfidence decimal.Decimal
}

func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		EVMOnly:          false,
		BridgeConfidence: decimal.NewFromFloat(0.9),
	}
}

// Planner turns a swap intent into an ordered route plan. Planning is
// side-effect-free and repeatable; the one call with an external side effect
// (order creation) belongs to the Coordinator and is never performed here.
type Planner struct {
	registry *Registry
	resolver *AssetResolver
	bridge   BridgeClient
	dex      DexClient
	fairness *FairnessChecker
	cfg      PlannerConfig
}

func NewPlanner(
	registry *Registry,
	resolver *AssetResolver,
	bridge BridgeClient,
	dex DexClient,
	fairness *FairnessChecker,
	cfg PlannerConfig,
) *Planner {
	return &Planner{
		registry: registry,
		resolver: resolver,
		bridge:   bridge,
		dex:      dex,
		fairness: fairness,
		cfg:      cfg,
	}
}

// Plan builds a route plan for the intent or returns a structured error with
// a stable code. Every branch terminates in exactly one of the two; a nil
// plan with a nil error is never a valid outcome.
func (p *Planner) Plan(ctx context.Context, intent models.SwapIntent) (*models.RoutePlan, *PlanError) {
	plannerLog.Info().
		Str("from_network", intent.FromNetworkID).
		Str("to_network", intent.ToNetworkID).
		Str("from_token", intent.FromToken).
		Str("to_token", intent.ToToken).
		Str("amount_base", intent.AmountBase).
		Msg("Planning route")

	amountBase, perr := p.validateIntent(intent)
	if perr != nil {
		return nil, perr
	}

	fromNet, ok := p.registry.Lookup(intent.FromNetworkID)
	if !ok {
		return nil, planErr(CodeUnknownNetwork, "unknown source network %q", intent.FromNetworkID)
	}
	toNet, ok := p.registry.Lookup(intent.ToNetworkID)
	if !ok {
		return nil, planErr(CodeUnknownNetwork, "unknown destination network %q", intent.ToNetworkID)
	}

	// Raw references carried under the wrong network are a distinct client
	// error from a reference that is simply malformed.
	if fam := DetectReferenceFamily(intent.FromToken); fam != FamilyUnsupported && fam != fromNet.Family {
		return nil, planErr(CodeTokenFamilyMismatch, "token reference %q belongs to family %q, not %q", intent.FromToken, fam, fromNet.Family)
	}
	if fam := DetectReferenceFamily(intent.ToToken); fam != FamilyUnsupported && fam != toNet.Family {
		return nil, planErr(CodeTokenFamilyMismatch, "token reference %q belongs to family %q, not %q", intent.ToToken, fam, toNet.Family)
	}

	fromAsset, ok := p.registry.Asset(intent.FromNetworkID, intent.FromToken)
	if !ok {
		return nil, planErr(CodeTokenResolutionFailed, "token %q is not listed on %q", intent.FromToken, intent.FromNetworkID)
	}
	toAsset, ok := p.registry.Asset(intent.ToNetworkID, intent.ToToken)
	if !ok {
		return nil, planErr(CodeTokenResolutionFailed, "token %q is not listed on %q", intent.ToToken, intent.ToNetworkID)
	}

	// Cheap local syntax gate; runs before any network call.
	if err := ValidateTokenReference(fromAsset.TokenRef, fromNet.Family); err != nil {
		return nil, planErr(CodeInvalidTokenFormat, "source token reference: %v", err)
	}
	if err := ValidateTokenReference(toAsset.TokenRef, toNet.Family); err != nil {
		return nil, planErr(CodeInvalidTokenFormat, "destination token reference: %v", err)
	}

	sameVenue := fromNet.Family == toNet.Family && fromNet.ID == toNet.ID
	crossFamily := fromNet.Family != toNet.Family

	if crossFamily && p.cfg.EVMOnly {
		return nil, planErr(CodeNotImplemented, "cross-family routing is disabled on this deployment")
	}

	var plan *models.RoutePlan
	if sameVenue {
		plan, perr = p.planSwap(ctx, intent, fromNet, fromAsset, toAsset, amountBase)
	} else {
		plan, perr = p.planBridge(ctx, intent, fromNet, toNet, fromAsset, toAsset, amountBase, crossFamily)
	}
	if perr != nil {
		return nil, perr
	}
	if intent.SingleStep != nil && *intent.SingleStep && len(plan.Steps) > 1 {
		return nil, planErr(CodeUnsupportedPair, "no single-step route exists for this pair")
	}
	return plan, nil
}

func (p *Planner) validateIntent(intent models.SwapIntent) (decimal.Decimal, *PlanError) {
	if intent.FromNetworkID == "" || intent.ToNetworkID == "" || intent.FromToken == "" || intent.ToToken == "" {
		return decimal.Zero, planErr(CodeInvalidRequest, "from/to network and token are required")
	}
	if intent.AmountBase == "" {
		return decimal.Zero, planErr(CodeInvalidRequest, "amount_base is required")
	}
	for _, c := range intent.AmountBase {
		if c < '0' || c > '9' {
			return decimal.Zero, planErr(CodeInvalidRequest, "amount_base must be an integer string in smallest units")
		}
	}
	amount, err := decimal.NewFromString(intent.AmountBase)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, planErr(CodeInvalidRequest, "amount_base must be a positive integer")
	}
	return amount, nil
}

// planSwap wraps a single aggregator quote as a one-step same-venue plan.
func (p *Planner) planSwap(
	ctx context.Context,
	intent models.SwapIntent,
	net Network,
	fromAsset, toAsset Asset,
	amountBase decimal.Decimal,
) (*models.RoutePlan, *PlanError) {
	quote, err := p.dex.SwapQuote(ctx, net.ID, fromAsset, toAsset, amountBase)
	if err != nil {
		if errors.Is(err, ErrPairUnsupported) {
			return nil, planErr(CodeUnsupportedPair, "%s/%s is not tradable on %s", fromAsset.Symbol, toAsset.Symbol, net.ID)
		}
		plannerLog.Warn().Err(err).Msg("Aggregator quote failed")
		return nil, planErr(CodePlanBuildFailed, "aggregator quote failed: %v", err)
	}

	amountInHuman := baseToHuman(amountBase, fromAsset.Decimals)
	amountOutHuman := baseToHuman(quote.ToAmountBase, toAsset.Decimals)

	warnings, fairnessWarn := p.checkQuoteFairness(ctx, fromAsset.Symbol, toAsset.Symbol, amountInHuman, amountOutHuman, false)
	if fairnessWarn != nil {
		return nil, fairnessWarn
	}

	safetyBps := p.safetyMargin(intent, decimal.NewFromInt(1), false)
	minOutHuman := GuaranteedMinimum(amountOutHuman, safetyBps)

	step := &models.RouteStep{
		StepID:   "step-1",
		Kind:     StepSwap,
		Family:   string(net.Family),
		Provider: p.dex.Name(),
		From: models.StepLeg{
			NetworkID:  net.ID,
			TokenID:    fromAsset.Symbol,
			AmountBase: amountBase.String(),
			Decimals:   fromAsset.Decimals,
		},
		To: models.StepLeg{
			NetworkID:           net.ID,
			TokenID:             toAsset.Symbol,
			EstimatedAmountBase: quote.ToAmountBase.Truncate(0).String(),
			Decimals:            toAsset.Decimals,
		},
		RequiresWallet: string(net.Family),
		Quote: &models.Quote{
			EstimatedAmount: amountOutHuman.String(),
			MinAmount:       minOutHuman.String(),
			RateID:          quote.RateID,
		},
	}

	plan := p.assemblePlan(intent, net, net, fromAsset, toAsset, []*models.RouteStep{step}, warnings)
	plannerLog.Info().Str("request_id", plan.RequestID).Msg("Built same-venue swap plan")
	return plan, nil
}

// planBridge builds a single bridge step through the cross-family provider.
// The plan deliberately stops short of creating the order: obtaining a
// deposit address is a side effect and happens only on explicit commit.
func (p *Planner) planBridge(
	ctx context.Context,
	intent models.SwapIntent,
	fromNet, toNet Network,
	fromAsset, toAsset Asset,
	amountBase decimal.Decimal,
	crossFamily bool,
) (*models.RoutePlan, *PlanError) {
	provider := p.bridge.Name()

	fromProviderAsset, ok := p.resolver.Resolve(provider, fromNet.ID, fromAsset.Symbol)
	if !ok {
		return nil, planErr(CodeUnsupportedAsset, "%s on %s is not supported by %s", fromAsset.Symbol, fromNet.ID, provider)
	}
	toProviderAsset, ok := p.resolver.Resolve(provider, toNet.ID, toAsset.Symbol)
	if !ok {
		return nil, planErr(CodeUnsupportedAsset, "%s on %s is not supported by %s", toAsset.Symbol, toNet.ID, provider)
	}

	amountInHuman := baseToHuman(amountBase, fromAsset.Decimals)

	quote, err := p.bridge.Estimate(ctx, fromProviderAsset, toProviderAsset, amountInHuman)
	if err != nil {
		if errors.Is(err, ErrPairUnsupported) {
			return nil, planErr(CodeUnsupportedPair, "%s does not trade %s -> %s", provider, fromProviderAsset.Ticker, toProviderAsset.Ticker)
		}
		plannerLog.Warn().Err(err).Str("provider", provider).Msg("Bridge quote failed")
		return nil, planErr(CodePlanBuildFailed, "bridge quote failed: %v", err)
	}

	if quote.MinAmount.IsPositive() && quote.MinAmount.GreaterThan(amountInHuman) {
		perr := planErr(CodeAmountTooLow, "provider minimum is %s %s, requested %s", quote.MinAmount.String(), fromAsset.Symbol, amountInHuman.String())
		perr.Debug = map[string]any{"min_amount": quote.MinAmount.String()}
		return nil, perr
	}

	warnings, fairnessErr := p.checkQuoteFairness(ctx, fromAsset.Symbol, toAsset.Symbol, amountInHuman, quote.EstimatedAmount, crossFamily)
	if fairnessErr != nil {
		return nil, fairnessErr
	}

	lowLiquidity := quote.MaxAmount.IsPositive() && amountInHuman.GreaterThan(quote.MaxAmount.Div(decimal.NewFromInt(2)))
	safetyBps := p.safetyMargin(intent, p.cfg.BridgeConfidence, lowLiquidity)
	minOutHuman := GuaranteedMinimum(quote.EstimatedAmount, safetyBps)

	estimatedOutBase := humanToBase(quote.EstimatedAmount, toAsset.Decimals)

	step := &models.RouteStep{
		StepID:   "step-1",
		Kind:     StepBridge,
		Family:   string(fromNet.Family),
		Provider: provider,
		From: models.StepLeg{
			NetworkID:  fromNet.ID,
			TokenID:    fromAsset.Symbol,
			AmountBase: amountBase.String(),
			Decimals:   fromAsset.Decimals,
		},
		To: models.StepLeg{
			NetworkID:           toNet.ID,
			TokenID:             toAsset.Symbol,
			EstimatedAmountBase: estimatedOutBase.String(),
			Decimals:            toAsset.Decimals,
		},
		RequiresWallet: string(fromNet.Family),
		Quote: &models.Quote{
			EstimatedAmount: quote.EstimatedAmount.String(),
			MinAmount:       minOutHuman.String(),
			MaxAmount:       quote.MaxAmount.String(),
			RateID:          quote.RateID,
		},
		ExecutionHint: fmt.Sprintf("call the execute endpoint to create the %s order and obtain a deposit address", provider),
	}

	plan := p.assemblePlan(intent, fromNet, toNet, fromAsset, toAsset, []*models.RouteStep{step}, warnings)
	plannerLog.Info().Str("request_id", plan.RequestID).Str("provider", provider).Msg("Built bridge plan")
	return plan, nil
}

// safetyMargin honors the caller's slippage override when one is given,
// otherwise derives the margin from route confidence and liquidity. The
// override is subject to the same cap as derived margins; a caller cannot
// widen the buffer past the guaranteed-minimum floor.
func (p *Planner) safetyMargin(intent models.SwapIntent, confidence decimal.Decimal, lowLiquidity bool) int64 {
	if intent.SlippageBps != nil && *intent.SlippageBps > 0 {
		margin := int64(*intent.SlippageBps)
		if capBps := p.fairness.Config().MarginCapBps; margin > capBps {
			margin = capBps
		}
		return margin
	}
	return p.fairness.SafetyMarginBps(confidence, lowLiquidity, false)
}

// checkQuoteFairness runs the reference-rate comparison and returns warnings
// to attach to the plan, or a rejection when the hard-reject policy is on.
// An unavailable reference is surfaced as a warning, never as a silent pass.
func (p *Planner) checkQuoteFairness(
	ctx context.Context,
	fromSymbol, toSymbol string,
	amountIn, amountOut decimal.Decimal,
	crossFamily bool,
) ([]string, *PlanError) {
	var warnings []string

	refRate, available, missing, err := p.fairness.ReferenceRate(ctx, fromSymbol, toSymbol)
	if err != nil {
		plannerLog.Warn().Err(err).Msg("Reference price fetch failed")
		warnings = append(warnings, "reference price source unreachable; quote fairness not verified")
		return warnings, nil
	}
	if !available {
		warnings = append(warnings, fmt.Sprintf("no reference price for %v; quote fairness not verified", missing))
		return warnings, nil
	}

	result := p.fairness.CheckFairness(amountIn, amountOut, refRate, crossFamily)
	if !result.Fair {
		msg := fmt.Sprintf("quote deviates %d bps from the reference rate (threshold %d bps)", result.DeviationBps, result.ThresholdBps)
		if p.fairness.Config().HardReject {
			return nil, planErr(CodePlanBuildFailed, "unfair quote rejected: %s", msg)
		}
		warnings = append(warnings, msg)
	}
	return warnings, nil
}

// assemblePlan derives wallet requirements from the families the route
// touches. A missing wallet annotates the plan instead of rejecting it:
// planning must stay possible before the user connects anything.
func (p *Planner) assemblePlan(
	intent models.SwapIntent,
	fromNet, toNet Network,
	fromAsset, toAsset Asset,
	steps []*models.RouteStep,
	warnings []string,
) *models.RoutePlan {
	families := []Family{fromNet.Family}
	if toNet.Family != fromNet.Family {
		families = append(families, toNet.Family)
	}

	wallets := make([]string, 0, len(families))
	var evm, tron, ton string
	if intent.User != nil {
		evm, tron, ton = intent.User.EVMAddress, intent.User.TronAddress, intent.User.TonAddress
	}
	for _, fam := range families {
		wallets = append(wallets, string(fam))
		if WalletFor(fam, evm, tron, ton) == "" {
			warnings = append(warnings, fmt.Sprintf("no %s wallet connected; required before execution", fam))
		}
	}

	return &models.RoutePlan{
		RequestID: uuid.NewString(),
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
		Steps:    steps,
		Requires: models.Requires{Wallets: wallets, Approvals: []string{}},
		Warnings: warnings,
	}
}

// baseToHuman shifts a base-unit amount into human units.
func baseToHuman(amount decimal.Decimal, decimals int) decimal.Decimal {
	return amount.Shift(int32(-decimals))
}

// humanToBase shifts a human amount into whole base units.
func humanToBase(amount decimal.Decimal, decimals int) decimal.Decimal {
	return amount.Shift(int32(decimals)).Truncate(0)
}
