// Package scenario turns a resolved resource (info + usage + pricing) and a
// requested action type into zero or more candidate simulation results. It
// encapsulates the per-action decision policy: which resources qualify, what
// the default tuning is, and how each candidate is scored.
package scenario

import (
	"fmt"
	"strings"

	"cloudsave/decision/costmodel"
	"cloudsave/pkg/api"
	"cloudsave/pkg/confidence"
)

// Implementation difficulty per action, on the 1-5 scale the priority score
// divides by. Commitments are a billing-console change; rightsizing needs a
// restart and validation.
const (
	difficultyOffHours    = 2
	difficultyCommitment  = 1
	difficultyStorage     = 2
	difficultyRightsizing = 3
)

// CommitLevels are the commitment fractions evaluated for every
// commitment-eligible resource. The caller receives all of them and picks.
var CommitLevels = []float64{0.5, 0.7, 0.9}

// Defaults applied when ScenarioParams omit a field.
const (
	DefaultStopAt      = "19:00"
	DefaultStartAt     = "07:00"
	DefaultTimezone    = "UTC"
	DefaultTargetTier  = "Cold"
	DefaultCommitYears = 1

	// RightsizingCeiling is the average-utilization eligibility ceiling:
	// at or above it a resource is not a downsizing candidate at all.
	RightsizingCeiling = 0.40

	// rightsizingTargetUtil is the utilization a downsized resource is
	// scaled toward; the new cost is floored at a quarter of current.
	rightsizingTargetUtil = 0.60
	rightsizingCostFloor  = 0.25

	// scaleToZeroRiskFactor discounts risk when the workload tolerates
	// scale-to-zero.
	scaleToZeroRiskFactor = 0.7
)

// tierPrices is the per-GB-month price table used when a storage resource is
// moved to a colder tier.
var tierPrices = map[string]float64{
	"Standard": 0.023,
	"Cool":     0.01,
	"Cold":     0.004,
	"Archive":  0.00099,
}

// Builder produces simulation results for one resource at a time.
type Builder struct {
	tierPrices map[string]float64
}

// NewBuilder creates a builder with the default storage tier price table.
func NewBuilder() *Builder {
	return &Builder{tierPrices: tierPrices}
}

// WithTierPrices overrides the storage tier price table.
func (b *Builder) WithTierPrices(prices map[string]float64) *Builder {
	b.tierPrices = prices
	return b
}

// Build evaluates one action type against one resolved resource. A resource
// with no resolvable usage or pricing contributes no scenarios; it never
// fails the batch. Output is deterministic for fixed input.
func (b *Builder) Build(res *api.ResourceInfo, usage *api.UsageMetrics, pricing *api.PricingInfo, params *api.ScenarioParams, action api.ActionType) []api.SimulationResult {
	if res == nil || usage == nil || pricing == nil {
		return nil
	}
	if params == nil {
		params = &api.ScenarioParams{}
	}

	switch action {
	case api.ActionOffHours:
		return b.offHours(res, usage, pricing, params.OffHours)
	case api.ActionCommitment:
		return b.commitment(res, usage, pricing, params.Commitment)
	case api.ActionStorage:
		return b.storageLifecycle(res, usage, pricing, params.Storage)
	case api.ActionRightsizing:
		return b.rightsizing(res, usage, pricing, params.Rightsizing)
	case api.ActionCleanup:
		// Zombie cleanup scenario generation is a known gap: there is no
		// agreed savings formula yet, so callers get an empty list.
		return []api.SimulationResult{}
	default:
		return nil
	}
}

func (b *Builder) offHours(res *api.ResourceInfo, usage *api.UsageMetrics, pricing *api.PricingInfo, p *api.OffHoursParams) []api.SimulationResult {
	if p == nil {
		p = &api.OffHoursParams{}
	}
	stopAt := p.StopAt
	if stopAt == "" {
		stopAt = DefaultStopAt
	}
	startAt := p.StartAt
	if startAt == "" {
		startAt = DefaultStartAt
	}
	tz := p.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}

	offHours := dailyOffHours(stopAt, startAt)
	current := costmodel.MonthlyCost(pricing.UnitPrice, usage.BilledUnits, pricing.Unit)
	saved := costmodel.OffHoursSavings(pricing.UnitPrice, offHours)
	if saved > current {
		saved = current
	}

	risk := costmodel.RiskScore(usage, availabilityOf(res))
	if p.ScaleToZero {
		risk = confidence.Clamp(risk * scaleToZeroRiskFactor)
	}

	return []api.SimulationResult{b.result(
		fmt.Sprintf("offhours-%s", res.ID),
		"Off-hours schedule",
		res, api.ActionOffHours,
		current, current-saved, risk, difficultyOffHours,
		fmt.Sprintf("Stop at %s and start at %s (%s), %.0f off-hours per day", stopAt, startAt, tz, offHours),
		"",
	)}
}

func (b *Builder) commitment(res *api.ResourceInfo, usage *api.UsageMetrics, pricing *api.PricingInfo, p *api.CommitmentParams) []api.SimulationResult {
	if !pricing.CommitmentEligible || pricing.CommitmentPrice <= 0 {
		return nil
	}
	years := DefaultCommitYears
	if p != nil && p.CommitYears > 0 {
		years = p.CommitYears
	}

	current := costmodel.MonthlyCost(pricing.UnitPrice, usage.BilledUnits, pricing.Unit)
	risk := costmodel.RiskScore(usage, availabilityOf(res))

	results := make([]api.SimulationResult, 0, len(CommitLevels))
	for _, level := range CommitLevels {
		saved := costmodel.CommitmentSavings(pricing.UnitPrice, pricing.CommitmentPrice, level, usage.BilledUnits, pricing.Unit)
		results = append(results, b.result(
			fmt.Sprintf("commitment-%d-%s", int(level*100), res.ID),
			fmt.Sprintf("Commit %d%% for %d year(s)", int(level*100), years),
			res, api.ActionCommitment,
			current, current-saved, risk, difficultyCommitment,
			fmt.Sprintf("Commit %d%% of usage at %.4f/%s for %d year(s), remainder on demand",
				int(level*100), pricing.CommitmentPrice, pricing.Unit, years),
			"",
		))
	}
	return results
}

func (b *Builder) storageLifecycle(res *api.ResourceInfo, usage *api.UsageMetrics, pricing *api.PricingInfo, p *api.StorageParams) []api.SimulationResult {
	target := DefaultTargetTier
	if p != nil && p.TargetTier != "" {
		target = p.TargetTier
	}
	targetPrice, ok := b.tierPrices[target]
	if !ok {
		return nil
	}

	sizeGB := usage.BilledUnits
	current := costmodel.MonthlyCost(pricing.UnitPrice, sizeGB, api.UnitGBMonth)
	saved := costmodel.StorageLifecycleSavings(pricing.UnitPrice, targetPrice, sizeGB)
	risk := costmodel.RiskScore(usage, availabilityOf(res))

	return []api.SimulationResult{b.result(
		fmt.Sprintf("storage-%s-%s", strings.ToLower(target), res.ID),
		fmt.Sprintf("Move to %s tier", target),
		res, api.ActionStorage,
		current, current-saved, risk, difficultyStorage,
		fmt.Sprintf("Transition %.0f GB to the %s tier at %.5f/GB-month", sizeGB, target, targetPrice),
		fmt.Sprintf(`{"storage_class":"%s"}`, target),
	)}
}

func (b *Builder) rightsizing(res *api.ResourceInfo, usage *api.UsageMetrics, pricing *api.PricingInfo, p *api.RightsizingParams) []api.SimulationResult {
	// Hard exclusion, not a low-score result: a busy resource is simply not
	// a downsizing candidate.
	if usage.AvgUtilization >= RightsizingCeiling {
		return nil
	}

	target := "one size down"
	patch := ""
	if p != nil && p.TargetSize != "" {
		target = p.TargetSize
		patch = fmt.Sprintf(`{"instance_type":"%s"}`, p.TargetSize)
	}

	current := costmodel.MonthlyCost(pricing.UnitPrice, usage.BilledUnits, pricing.Unit)
	factor := usage.AvgUtilization / rightsizingTargetUtil
	if factor < rightsizingCostFloor {
		factor = rightsizingCostFloor
	}
	if factor > 1 {
		factor = 1
	}
	newCost := current * factor
	risk := costmodel.RiskScore(usage, availabilityOf(res))

	return []api.SimulationResult{b.result(
		fmt.Sprintf("rightsizing-%s", res.ID),
		fmt.Sprintf("Rightsize to %s", target),
		res, api.ActionRightsizing,
		current, newCost, risk, difficultyRightsizing,
		fmt.Sprintf("Average utilization %.0f%% is below the %.0f%% ceiling; resize to %s",
			usage.AvgUtilization*100, RightsizingCeiling*100, target),
		patch,
	)}
}

func (b *Builder) result(id, name string, res *api.ResourceInfo, action api.ActionType, current, newCost, risk float64, difficulty int, description, patch string) api.SimulationResult {
	saved := costmodel.Savings(current, newCost)
	return api.SimulationResult{
		ScenarioID:  id,
		Name:        name,
		ResourceID:  res.ID,
		ActionType:  action,
		CurrentCost: current,
		NewCost:     newCost,
		Savings:     saved,
		RiskScore:   risk,
		Priority:    costmodel.PriorityScore(saved, risk, difficulty),
		Confidence:  confidence.FromRisk(risk),
		Patch:       patch,
		Description: description,
	}
}

// availabilityOf reads the availability policy from resource tags; unset or
// unknown values default to medium inside the cost model.
func availabilityOf(res *api.ResourceInfo) costmodel.AvailabilityPolicy {
	return costmodel.AvailabilityPolicy(res.Tags["availability"])
}
