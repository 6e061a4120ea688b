package engine

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var fairnessLog zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	fairnessLog = zerolog.New(out).With().Timestamp().Str("component", "fairness").Logger()
}

// PriceSource fetches independent spot prices (in a common quote currency)
// for token symbols. Symbols with no known price come back in missing, not
// as an error: partial results let the caller degrade gracefully.
type PriceSource interface {
	SpotPrices(ctx context.Context, symbols []string) (prices map[string]decimal.Decimal, missing []string, err error)
}

// FairnessConfig holds the deviation thresholds and safety-margin knobs.
type FairnessConfig struct {
	// Max deviation between implied and reference rate before a quote is
	// flagged unfair. Cross-family routes get a wider band because bridging
	// carries legitimate extra spread.
	SameFamilyMaxBps  int64
	CrossFamilyMaxBps int64
	// BaseMarginBps seeds the guaranteed-minimum buffer; MarginCapBps is the
	// hard ceiling no combination of risk penalties may exceed.
	BaseMarginBps int64
	MarginCapBps  int64
	// HardReject turns an unfair flag into a plan rejection instead of a
	// warning.
	HardReject bool
}

func DefaultFairnessConfig() FairnessConfig {
	return FairnessConfig{
		SameFamilyMaxBps:  500,
		CrossFamilyMaxBps: 1200,
		BaseMarginBps:     100,
		MarginCapBps:      100,
		HardReject:        false,
	}
}

// FairnessChecker compares provider quotes against an independent reference
// rate so a manipulated or stale quote never reaches the user as a
// trustworthy number.
type FairnessChecker struct {
	prices PriceSource
	cfg    FairnessConfig
}

func NewFairnessChecker(prices PriceSource, cfg FairnessConfig) *FairnessChecker {
	return &FairnessChecker{prices: prices, cfg: cfg}
}

func (f *FairnessChecker) Config() FairnessConfig { return f.cfg }

// ReferenceRate derives tokenA_price / tokenB_price from independent spot
// prices. available=false means at least one leg is unknown; the caller
// decides the fallback policy, and an unavailable reference must never count
// as a passed check.
func (f *FairnessChecker) ReferenceRate(ctx context.Context, tokenA, tokenB string) (rate decimal.Decimal, available bool, missing []string, err error) {
	prices, missing, err := f.prices.SpotPrices(ctx, []string{tokenA, tokenB})
	if err != nil {
		return decimal.Zero, false, missing, err
	}
	priceA, okA := prices[tokenA]
	priceB, okB := prices[tokenB]
	if !okA || !okB || priceB.IsZero() {
		return decimal.Zero, false, missing, nil
	}
	return priceA.Div(priceB), true, nil, nil
}

// FairnessResult reports how far a quote's implied rate sits from the
// reference.
type FairnessResult struct {
	Fair         bool
	DeviationBps int64
	ThresholdBps int64
}

// CheckFairness computes the implied rate amountOut/amountIn and its
// deviation in basis points from the reference rate. Flagging a quote unfair
// does not by itself reject the plan; that policy belongs to the caller.
func (f *FairnessChecker) CheckFairness(amountIn, amountOut, referenceRate decimal.Decimal, crossFamily bool) FairnessResult {
	threshold := f.cfg.SameFamilyMaxBps
	if crossFamily {
		threshold = f.cfg.CrossFamilyMaxBps
	}
	if amountIn.IsZero() || referenceRate.IsZero() {
		return FairnessResult{Fair: false, DeviationBps: -1, ThresholdBps: threshold}
	}

	implied := amountOut.Div(amountIn)
	deviation := implied.Sub(referenceRate).Abs().
		Div(referenceRate).
		Mul(decimal.NewFromInt(10000)).
		IntPart()

	fair := deviation <= threshold
	if !fair {
		fairnessLog.Warn().
			Str("implied", implied.String()).
			Str("reference", referenceRate.String()).
			Int64("deviation_bps", deviation).
			Int64("threshold_bps", threshold).
			Msg("Quote outside fairness threshold")
	}
	return FairnessResult{Fair: fair, DeviationBps: deviation, ThresholdBps: threshold}
}

// confidenceFloor is the route confidence below which the safety margin
// starts growing.
var confidenceFloor = decimal.NewFromFloat(0.8)

// SafetyMarginBps derives the basis-point buffer subtracted from an estimate
// to produce the guaranteed minimum. Low confidence, thin liquidity and an
// unfamiliar destination network each widen the margin, but the total never
// exceeds the configured cap: the guaranteed minimum stays within 1% of the
// raw estimate no matter how many penalties stack.
func (f *FairnessChecker) SafetyMarginBps(routeConfidence decimal.Decimal, hasLowLiquidity, isNewNetwork bool) int64 {
	margin := f.cfg.BaseMarginBps

	if routeConfidence.LessThan(confidenceFloor) {
		// one extra bp per bp of confidence shortfall
		shortfall := confidenceFloor.Sub(routeConfidence).Mul(decimal.NewFromInt(10000)).IntPart()
		margin += shortfall / 100
	}
	if hasLowLiquidity {
		margin += 50
	}
	if isNewNetwork {
		margin += 25
	}

	if margin > f.cfg.MarginCapBps {
		margin = f.cfg.MarginCapBps
	}
	if margin < 0 {
		margin = 0
	}
	return margin
}

// maxSafetyMarginBps bounds the buffer no matter where it came from
// (derived margins, caller slippage overrides). The guaranteed minimum stays
// within 1% of the raw estimate for all inputs.
const maxSafetyMarginBps = 100

// GuaranteedMinimum computes estimatedOut * (1 - safetyBps/10000), clamped
// so it can never exceed the estimate and never drop below 99% of it.
func GuaranteedMinimum(estimatedOut decimal.Decimal, safetyBps int64) decimal.Decimal {
	if safetyBps <= 0 {
		return estimatedOut
	}
	if safetyBps > maxSafetyMarginBps {
		safetyBps = maxSafetyMarginBps
	}
	factor := decimal.NewFromInt(10000 - safetyBps).Div(decimal.NewFromInt(10000))
	min := estimatedOut.Mul(factor)
	if min.GreaterThan(estimatedOut) {
		return estimatedOut
	}
	return min
}
