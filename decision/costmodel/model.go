// Package costmodel provides the pure cost, savings, risk, and priority
// arithmetic the scenario builders are composed from. Nothing here performs
// I/O or returns an error: missing or malformed input degrades to a
// documented default value.
package costmodel

import (
	"math"

	"cloudsave/pkg/api"
	"cloudsave/pkg/confidence"
)

// HoursPerMonth is the fixed hour-per-month approximation (24x30) used for
// hour- and slot-billed resources. It is deliberately not calendar-accurate.
const HoursPerMonth = 720

// NeutralRisk is the risk assigned when usage metrics are unavailable.
const NeutralRisk = 0.5

// AvailabilityPolicy expresses how availability-sensitive a resource is.
type AvailabilityPolicy string

const (
	AvailabilityHigh   AvailabilityPolicy = "high"
	AvailabilityMedium AvailabilityPolicy = "medium"
	AvailabilityLow    AvailabilityPolicy = "low"
)

// Weight returns the risk contribution of the policy. Unknown or unset
// policies weigh as medium.
func (p AvailabilityPolicy) Weight() float64 {
	switch p {
	case AvailabilityHigh:
		return 0.5
	case AvailabilityLow:
		return 0.1
	default:
		return 0.3
	}
}

// MonthlyCost computes the monthly cost of a unit price and billed usage for
// the given unit kind. Hour- and slot-billed usage is the equivalent
// always-on fraction/count for the billing period, not raw hours. Unknown
// unit kinds and non-finite or negative inputs cost zero.
func MonthlyCost(unitPrice, usage float64, unit string) float64 {
	if !finiteNonNegative(unitPrice) || !finiteNonNegative(usage) {
		return 0
	}
	switch unit {
	case api.UnitHour, api.UnitSlot:
		return unitPrice * usage * HoursPerMonth
	case api.UnitGB, api.UnitRequest, api.UnitGBMonth:
		return unitPrice * usage
	default:
		return 0
	}
}

// Savings returns current - new, floored at zero. A plan that costs more
// than the current one yields zero savings, never a negative number.
func Savings(current, new float64) float64 {
	if s := current - new; s > 0 {
		return s
	}
	return 0
}

// RiskScore computes a bounded [0,1] risk for changing a resource:
// higher p99 utilization, stricter availability policy, and lower idle time
// all push risk up. Nil metrics yield NeutralRisk.
func RiskScore(m *api.UsageMetrics, policy AvailabilityPolicy) float64 {
	if m == nil {
		return NeutralRisk
	}
	risk := confidence.WeightedSum(
		[]float64{m.P99Utilization, policy.Weight(), 1 - m.IdleRatio},
		[]float64{0.3, 0.4, 0.3},
	)
	return confidence.Clamp(risk)
}

// PriorityScore ranks a scenario: savings discounted by risk and divided by
// implementation difficulty (1-5). Non-positive difficulty is treated as 1.
func PriorityScore(savings, risk float64, difficulty int) float64 {
	if difficulty < 1 {
		difficulty = 1
	}
	return savings * (1 - risk) / float64(difficulty)
}

// OffHoursSavings estimates monthly savings from stopping an hourly-billed
// resource for dailyOffHours hours every day of a 30-day month.
func OffHoursSavings(hourlyPrice, dailyOffHours float64) float64 {
	if !finiteNonNegative(hourlyPrice) || !finiteNonNegative(dailyOffHours) {
		return 0
	}
	return (dailyOffHours / 24) * hourlyPrice * 30
}

// CommitmentSavings estimates monthly savings from committing a fraction of
// usage (commitLevel in [0,1]) at the discounted price while the remainder
// stays on demand.
func CommitmentSavings(onDemandPrice, commitPrice, commitLevel, usage float64, unit string) float64 {
	current := MonthlyCost(onDemandPrice, usage, unit)
	committed := MonthlyCost(commitPrice, usage*commitLevel, unit)
	remainder := MonthlyCost(onDemandPrice, usage*(1-commitLevel), unit)
	return Savings(current, committed+remainder)
}

// StorageLifecycleSavings estimates monthly savings from moving sizeGB of
// storage to a cheaper tier.
func StorageLifecycleSavings(currentTierPrice, targetTierPrice, sizeGB float64) float64 {
	return Savings(
		MonthlyCost(currentTierPrice, sizeGB, api.UnitGBMonth),
		MonthlyCost(targetTierPrice, sizeGB, api.UnitGBMonth),
	)
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
