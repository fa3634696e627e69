// Package api holds the shared contracts exchanged between the simulation
// engines and the HTTP layer. Everything here is a value: produced once,
// marshaled as-is, never mutated.
package api

import "time"

// CloudProvider identifies the CSP a resource is billed by.
type CloudProvider string

const (
	AWS   CloudProvider = "aws"
	Azure CloudProvider = "azure"
	GCP   CloudProvider = "gcp"
	NCP   CloudProvider = "ncp"
)

// ActionType is the closed set of cost-saving actions the engine can simulate.
type ActionType string

const (
	ActionOffHours    ActionType = "offhours"
	ActionCommitment  ActionType = "commitment"
	ActionStorage     ActionType = "storage"
	ActionRightsizing ActionType = "rightsizing"
	ActionCleanup     ActionType = "cleanup"
)

// ActionTypes lists every known action in a fixed order.
func ActionTypes() []ActionType {
	return []ActionType{ActionOffHours, ActionCommitment, ActionStorage, ActionRightsizing, ActionCleanup}
}

// Valid reports whether t names a known action.
func (t ActionType) Valid() bool {
	switch t {
	case ActionOffHours, ActionCommitment, ActionStorage, ActionRightsizing, ActionCleanup:
		return true
	}
	return false
}

// ResourceInfo is an immutable snapshot identifying one billable unit.
// It is supplied by a resolver per simulation call and never persisted.
type ResourceInfo struct {
	ID      string            `json:"id"`
	CSP     CloudProvider     `json:"csp"`
	Service string            `json:"service"`
	Region  string            `json:"region"`
	Project string            `json:"project,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// UsageMetrics describes observed behavior over the lookback window.
// Utilization and idle figures are ratios in [0,1].
type UsageMetrics struct {
	AvgUtilization  float64 `json:"avg_utilization"`
	P95Utilization  float64 `json:"p95_utilization"`
	P99Utilization  float64 `json:"p99_utilization"`
	IdleRatio       float64 `json:"idle_ratio"`
	SchedulePattern string  `json:"schedule_pattern,omitempty"` // e.g. business-hours, always-on, bursty
	UptimeDays      int     `json:"uptime_days"`
	NetworkInGB     float64 `json:"network_in_gb"`
	NetworkOutGB    float64 `json:"network_out_gb"`

	// BilledUnits is the observed billed quantity for the pricing unit kind:
	// the equivalent always-on fraction for "hour"/"slot", GB for
	// "GB"/"GB-month", count for "request".
	BilledUnits float64 `json:"billed_units"`
}

// Pricing unit kinds. Anything outside this set costs zero.
const (
	UnitHour    = "hour"
	UnitGB      = "GB"
	UnitRequest = "request"
	UnitGBMonth = "GB-month"
	UnitSlot    = "slot"
)

// PricingInfo carries the billing terms a resource is currently charged under.
type PricingInfo struct {
	Unit               string  `json:"unit"`
	UnitPrice          float64 `json:"unit_price"`
	CommitmentEligible bool    `json:"commitment_eligible"`
	CommitmentPrice    float64 `json:"commitment_price,omitempty"`
	CommitmentType     string  `json:"commitment_type,omitempty"` // e.g. savings-plan, reserved, cud
	Currency           string  `json:"currency,omitempty"`
}

// ScenarioParams is caller-supplied tuning, one variant per action type plus a
// shared free-form bag. Every field is optional; builders fall back to
// documented defaults.
type ScenarioParams struct {
	OffHours    *OffHoursParams    `json:"offhours,omitempty"`
	Commitment  *CommitmentParams  `json:"commitment,omitempty"`
	Storage     *StorageParams     `json:"storage,omitempty"`
	Rightsizing *RightsizingParams `json:"rightsizing,omitempty"`
	Cleanup     *CleanupParams     `json:"cleanup,omitempty"`

	// Custom carries provider-specific tuning that has no first-class field.
	Custom map[string]any `json:"custom,omitempty"`
}

// OffHoursParams tunes the stop/start schedule.
type OffHoursParams struct {
	Weekdays    []string `json:"weekdays,omitempty"` // default Mon-Fri
	StopAt      string   `json:"stop_at,omitempty"`  // HH:MM, default 19:00
	StartAt     string   `json:"start_at,omitempty"` // HH:MM, default 07:00
	Timezone    string   `json:"timezone,omitempty"` // default UTC
	ScaleToZero bool     `json:"scale_to_zero_supported,omitempty"`
}

// CommitmentParams tunes commitment term length.
type CommitmentParams struct {
	CommitYears int `json:"commit_years,omitempty"` // 1 or 3, default 1
}

// StorageParams tunes the lifecycle target.
type StorageParams struct {
	TargetTier    string `json:"target_tier,omitempty"` // default "Cold"
	RetentionDays int    `json:"retention_days,omitempty"`
}

// RightsizingParams names the proposed target shape.
type RightsizingParams struct {
	TargetSize string `json:"target_size,omitempty"`
	TargetVCPU int    `json:"target_vcpu,omitempty"`
	TargetRAM  int    `json:"target_ram_gb,omitempty"`
}

// CleanupParams tunes zombie detection.
type CleanupParams struct {
	UnusedDays int `json:"unused_days,omitempty"`
}

// SimulationResult is one candidate outcome for a resource and action.
type SimulationResult struct {
	ScenarioID  string     `json:"scenario_id"`
	Name        string     `json:"name"`
	ResourceID  string     `json:"resource_id"`
	ActionType  ActionType `json:"action_type"`
	CurrentCost float64    `json:"current_cost"`
	NewCost     float64    `json:"new_cost"`
	Savings     float64    `json:"savings"`
	RiskScore   float64    `json:"risk_score"`
	Priority    float64    `json:"priority_score"`
	Confidence  float64    `json:"confidence"`
	Patch       string     `json:"patch,omitempty"`
	Description string     `json:"description"`
}

// SimulateResponse is the aggregate output of one simulate call.
type SimulateResponse struct {
	Scenarios      []SimulationResult `json:"scenarios"`
	ActionType     ActionType         `json:"actionType"`
	TotalResources int                `json:"totalResources"`
}

// Recommendation is a ranked "what should I do next" entry.
type Recommendation struct {
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	ActionType       ActionType       `json:"action_type"`
	EstimatedSavings float64          `json:"estimated_savings"`
	Scenario         SimulationResult `json:"scenario"`
}

// ProposalStatus is the lifecycle state of a persisted proposal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "PENDING"
	ProposalApproved ProposalStatus = "APPROVED"
	ProposalRejected ProposalStatus = "REJECTED"
	ProposalExpired  ProposalStatus = "EXPIRED"
)

// Terminal reports whether no further transition is allowed from s.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalApproved || s == ProposalRejected || s == ProposalExpired
}

// Proposal is the persisted, human-decidable wrapper around a chosen scenario.
// Result is snapshotted at creation and immutable afterwards; status moves
// only forward through the state machine.
type Proposal struct {
	ID         string           `json:"id"`
	Status     ProposalStatus   `json:"status"`
	ScenarioID string           `json:"scenario_id"`
	Result     SimulationResult `json:"result"`
	Note       string           `json:"note,omitempty"`
	TTLDays    int              `json:"ttl_days"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
}
