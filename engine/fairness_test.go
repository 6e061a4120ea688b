package engine_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/zeebo/assert"

	"github.com/omnidex/route-engine/engine"
)

func newChecker() *engine.FairnessChecker {
	return engine.NewFairnessChecker(defaultPrices(), engine.DefaultFairnessConfig())
}

func TestFairness_FairQuote(t *testing.T) {
	checker := newChecker()

	// 1 ETH -> 1990 USDT against a 2000 reference: 50 bps off
	result := checker.CheckFairness(
		decimal.NewFromInt(1),
		decimal.NewFromInt(1990),
		decimal.NewFromInt(2000),
		false,
	)

	t.Logf("Result: %+v", result)
	assert.True(t, result.Fair)
	assert.Equal(t, result.DeviationBps, int64(50))
	assert.Equal(t, result.ThresholdBps, int64(500))
}

func TestFairness_UnfairQuote(t *testing.T) {
	checker := newChecker()

	// 1 ETH -> 1800 USDT against a 2000 reference: 1000 bps off
	result := checker.CheckFairness(
		decimal.NewFromInt(1),
		decimal.NewFromInt(1800),
		decimal.NewFromInt(2000),
		false,
	)

	assert.False(t, result.Fair)
	assert.Equal(t, result.DeviationBps, int64(1000))
}

func TestFairness_CrossFamilyWiderBand(t *testing.T) {
	checker := newChecker()

	// 1000 bps deviation is unfair same-family but within the bridge band
	sameFamily := checker.CheckFairness(
		decimal.NewFromInt(1), decimal.NewFromInt(1800), decimal.NewFromInt(2000), false)
	crossFamily := checker.CheckFairness(
		decimal.NewFromInt(1), decimal.NewFromInt(1800), decimal.NewFromInt(2000), true)

	assert.False(t, sameFamily.Fair)
	assert.True(t, crossFamily.Fair)
	assert.Equal(t, crossFamily.ThresholdBps, int64(1200))
}

func TestFairness_Monotonic(t *testing.T) {
	checker := newChecker()
	reference := decimal.NewFromInt(2000)

	// Increasing deviation never flips a quote back to fair
	prevFair := true
	for out := 2000; out >= 1000; out -= 50 {
		result := checker.CheckFairness(decimal.NewFromInt(1), decimal.NewFromInt(int64(out)), reference, false)
		if !prevFair {
			assert.False(t, result.Fair)
		}
		prevFair = result.Fair
	}
}

func TestFairness_ZeroInputsNeverFair(t *testing.T) {
	checker := newChecker()

	result := checker.CheckFairness(decimal.Zero, decimal.NewFromInt(100), decimal.NewFromInt(1), false)
	assert.False(t, result.Fair)

	result = checker.CheckFairness(decimal.NewFromInt(1), decimal.NewFromInt(100), decimal.Zero, false)
	assert.False(t, result.Fair)
}

func TestFairness_ReferenceRate(t *testing.T) {
	checker := newChecker()

	rate, available, missing, err := checker.ReferenceRate(context.Background(), "ETH", "USDT")
	assert.NoError(t, err)
	assert.True(t, available)
	assert.Nil(t, missing)
	assert.True(t, rate.Equal(decimal.NewFromInt(2000)))
}

func TestFairness_ReferenceRateMissingLeg(t *testing.T) {
	checker := newChecker()

	_, available, missing, err := checker.ReferenceRate(context.Background(), "ETH", "DOGE")
	assert.NoError(t, err)
	assert.False(t, available)
	assert.Equal(t, len(missing), 1)
	assert.Equal(t, missing[0], "DOGE")
}

func TestSafetyMargin_Cap(t *testing.T) {
	checker := newChecker()

	// All penalties stacked still respect the 100 bps cap
	margin := checker.SafetyMarginBps(decimal.NewFromFloat(0.1), true, true)
	t.Logf("Stacked margin: %d bps", margin)
	assert.True(t, margin <= 100)

	// Full confidence keeps the base margin
	assert.Equal(t, checker.SafetyMarginBps(decimal.NewFromInt(1), false, false), int64(100))
}

func TestGuaranteedMinimum_Bounds(t *testing.T) {
	estimates := []string{"0.000001", "1", "49.5", "123456789.123456"}
	// margins beyond the cap clamp instead of eating into the floor
	margins := []int64{0, 1, 50, 100, 101, 500, 10000}

	for _, e := range estimates {
		estimated := decimal.RequireFromString(e)
		floor := estimated.Mul(decimal.RequireFromString("0.99"))
		for _, bps := range margins {
			min := engine.GuaranteedMinimum(estimated, bps)
			assert.True(t, min.LessThanOrEqual(estimated))
			assert.True(t, min.GreaterThanOrEqual(floor))
		}
	}
}

func TestGuaranteedMinimum_ClampsOversizedMargin(t *testing.T) {
	estimated := decimal.NewFromInt(1000)
	floor := estimated.Mul(decimal.RequireFromString("0.99"))

	// 500 bps would mean 950; the clamp holds the minimum at 990
	min := engine.GuaranteedMinimum(estimated, 500)
	t.Logf("Min with 500 bps: %s", min)
	assert.True(t, min.Equal(floor))

	// the cap itself and anything above land on the same floor
	assert.True(t, engine.GuaranteedMinimum(estimated, 100).Equal(min))
	assert.True(t, engine.GuaranteedMinimum(estimated, 10000).Equal(min))
}

func TestGuaranteedMinimum_Monotone(t *testing.T) {
	estimated := decimal.NewFromInt(1000)
	prev := engine.GuaranteedMinimum(estimated, 0)
	for bps := int64(10); bps <= 100; bps += 10 {
		cur := engine.GuaranteedMinimum(estimated, bps)
		assert.True(t, cur.LessThanOrEqual(prev))
		prev = cur
	}
}
