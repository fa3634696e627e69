package costmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"cloudsave/pkg/api"
)

func TestMonthlyCost(t *testing.T) {
	assert.InDelta(t, 72.0, MonthlyCost(0.1, 1.0, api.UnitHour), 1e-9)
	assert.InDelta(t, 36.0, MonthlyCost(0.1, 0.5, api.UnitSlot), 1e-9)
	assert.InDelta(t, 23.0, MonthlyCost(0.023, 1000, api.UnitGBMonth), 1e-9)
	assert.InDelta(t, 5.0, MonthlyCost(0.5, 10, api.UnitGB), 1e-9)
	assert.InDelta(t, 2.0, MonthlyCost(0.000002, 1000000, api.UnitRequest), 1e-9)
}

func TestMonthlyCostDegradesToZero(t *testing.T) {
	assert.Zero(t, MonthlyCost(0.1, 1.0, "fortnight"))
	assert.Zero(t, MonthlyCost(-0.1, 1.0, api.UnitHour))
	assert.Zero(t, MonthlyCost(0.1, -1.0, api.UnitHour))
	assert.Zero(t, MonthlyCost(math.NaN(), 1.0, api.UnitHour))
	assert.Zero(t, MonthlyCost(0.1, math.Inf(1), api.UnitHour))
}

func TestSavingsNeverNegative(t *testing.T) {
	assert.Zero(t, Savings(100, 150))
	assert.InDelta(t, 50.0, Savings(150, 100), 1e-9)
	assert.Zero(t, Savings(0, 0))
}

func TestRiskScoreBounds(t *testing.T) {
	cases := []struct {
		metrics *api.UsageMetrics
		policy  AvailabilityPolicy
	}{
		{&api.UsageMetrics{P99Utilization: 1, IdleRatio: 0}, AvailabilityHigh},
		{&api.UsageMetrics{P99Utilization: 0, IdleRatio: 1}, AvailabilityLow},
		{&api.UsageMetrics{P99Utilization: 0.5, IdleRatio: 0.5}, AvailabilityMedium},
		{&api.UsageMetrics{P99Utilization: 0.9, IdleRatio: 0.1}, "bogus"},
	}
	for _, c := range cases {
		risk := RiskScore(c.metrics, c.policy)
		assert.GreaterOrEqual(t, risk, 0.0)
		assert.LessOrEqual(t, risk, 1.0)
	}
}

func TestRiskScoreFormula(t *testing.T) {
	// 0.3*1 + 0.4*0.5 + 0.3*(1-0) = 0.8
	risk := RiskScore(&api.UsageMetrics{P99Utilization: 1, IdleRatio: 0}, AvailabilityHigh)
	assert.InDelta(t, 0.8, risk, 1e-9)

	// Unknown policy weighs as medium.
	got := RiskScore(&api.UsageMetrics{P99Utilization: 0.4, IdleRatio: 0.5}, "")
	want := RiskScore(&api.UsageMetrics{P99Utilization: 0.4, IdleRatio: 0.5}, AvailabilityMedium)
	assert.InDelta(t, want, got, 1e-9)
}

func TestRiskScoreNilMetrics(t *testing.T) {
	assert.InDelta(t, NeutralRisk, RiskScore(nil, AvailabilityHigh), 1e-9)
}

func TestPriorityScoreMonotonicInSavings(t *testing.T) {
	prev := -1.0
	for _, savings := range []float64{0, 10, 50, 200, 1000} {
		score := PriorityScore(savings, 0.3, 2)
		assert.Greater(t, score, prev-1e-12)
		prev = score
	}
}

func TestPriorityScoreDifficultyFloor(t *testing.T) {
	assert.InDelta(t, PriorityScore(100, 0.5, 1), PriorityScore(100, 0.5, 0), 1e-9)
	assert.InDelta(t, PriorityScore(100, 0.5, 1), PriorityScore(100, 0.5, -3), 1e-9)
	assert.InDelta(t, PriorityScore(100, 0.5, 1)/5, PriorityScore(100, 0.5, 5), 1e-9)
}

func TestOffHoursSavings(t *testing.T) {
	assert.InDelta(t, 1.5, OffHoursSavings(0.1, 12), 1e-9)
	assert.Zero(t, OffHoursSavings(-0.1, 12))
}

func TestCommitmentSavings(t *testing.T) {
	// current=72.0, committed=30.24, remainder=21.6, new=51.84
	got := CommitmentSavings(0.1, 0.06, 0.7, 1.0, api.UnitHour)
	assert.InDelta(t, 20.16, got, 0.01)
}

func TestCommitmentSavingsNeverNegative(t *testing.T) {
	// Commitment price above on-demand yields zero savings.
	assert.Zero(t, CommitmentSavings(0.06, 0.1, 0.7, 1.0, api.UnitHour))
}

func TestStorageLifecycleSavings(t *testing.T) {
	assert.InDelta(t, 19.0, StorageLifecycleSavings(0.023, 0.004, 1000), 1e-9)
}
