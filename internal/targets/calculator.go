// Package targets computes science-based emission reduction targets.
//
// All calculations are pure functions of their numeric inputs and the
// configured rate table. The core formula is compound annual reduction:
// emissions(y) = base * (1 - r/100)^(y - baseYear).
package targets

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

const (
	percent = 100.0

	// DefaultScope3ThresholdPercent is the scope 3 share above which scope 3
	// targets are mandatory.
	DefaultScope3ThresholdPercent = 40.0

	// DefaultNearTermHorizonYears places the near-term milestone.
	DefaultNearTermHorizonYears = 5

	// DefaultCheckpointYear is the fixed mid-term checkpoint.
	DefaultCheckpointYear = 2030

	// onTrackTolerance is the relative slack allowed when comparing actual
	// emissions to the expected trajectory.
	onTrackTolerance = 1e-9
)

// Calculator holds the rate table and thresholds. Safe for concurrent use.
type Calculator struct {
	rates           RateTable
	scope3Threshold float64
	nearTermHorizon int
	checkpointYear  int
}

// Option customizes a Calculator.
type Option func(*Calculator)

// WithRateTable replaces the default ambition tiers.
func WithRateTable(t RateTable) Option {
	return func(c *Calculator) { c.rates = t }
}

// WithScope3Threshold sets the scope 3 materiality threshold in percent.
func WithScope3Threshold(p float64) Option {
	return func(c *Calculator) { c.scope3Threshold = p }
}

// WithNearTermHorizon sets how many years after the current year the
// near-term milestone falls.
func WithNearTermHorizon(years int) Option {
	return func(c *Calculator) { c.nearTermHorizon = years }
}

// WithCheckpointYear sets the fixed checkpoint milestone year.
func WithCheckpointYear(year int) Option {
	return func(c *Calculator) { c.checkpointYear = year }
}

// NewCalculator returns a Calculator using the SBTi defaults unless overridden.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		rates:           DefaultRateTable(),
		scope3Threshold: DefaultScope3ThresholdPercent,
		nearTermHorizon: DefaultNearTermHorizonYears,
		checkpointYear:  DefaultCheckpointYear,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rates returns the configured rate table.
func (c *Calculator) Rates() RateTable { return c.rates }

// ScopeTarget is the reduction target for one scope group.
type ScopeTarget struct {
	AnnualRatePercent     float64 `json:"annual_rate_percent"`
	TotalReductionPercent float64 `json:"total_reduction_percent"`
	TargetEmissions       float64 `json:"target_emissions"`
}

// TrajectoryPoint is the allowed emissions for one year.
type TrajectoryPoint struct {
	Year                     int     `json:"year"`
	TargetEmissions          float64 `json:"target_emissions"`
	ReductionFromBasePercent float64 `json:"reduction_from_base_percent"`
}

// MilestoneKind labels a milestone.
type MilestoneKind string

// Milestone kinds.
const (
	MilestoneNearTerm   MilestoneKind = "near_term"
	MilestoneCheckpoint MilestoneKind = "checkpoint"
	MilestoneTarget     MilestoneKind = "target"
)

// Milestone is a highlighted trajectory year.
type Milestone struct {
	Kind MilestoneKind `json:"kind"`
	TrajectoryPoint
}

// Targets is the result of CalculateTargets.
type Targets struct {
	Ambition      Ambition          `json:"ambition"`
	BaseEmissions float64           `json:"base_emissions"`
	BaseYear      int               `json:"base_year"`
	TargetYear    int               `json:"target_year"`
	Scope12       ScopeTarget       `json:"scope_1_2"`
	Scope3        ScopeTarget       `json:"scope_3"`
	Trajectory    []TrajectoryPoint `json:"trajectory"`
	Milestones    []Milestone       `json:"milestones"`
}

// CalculateTargets derives scope 1+2 and scope 3 targets for an ambition,
// the year-by-year scope 1+2 trajectory and its milestones.
func (c *Calculator) CalculateTargets(
	base float64, baseYear, targetYear int, ambition string, currentYear int,
) (Targets, error) {
	if err := checkInputs(base, baseYear, targetYear); err != nil {
		return Targets{}, err
	}
	amb, err := c.rates.Lookup(ambition)
	if err != nil {
		return Targets{}, err
	}

	years := targetYear - baseYear
	out := Targets{
		Ambition:      amb,
		BaseEmissions: base,
		BaseYear:      baseYear,
		TargetYear:    targetYear,
		Scope12:       scopeTarget(base, amb.Scope12Rate, years),
		Scope3:        scopeTarget(base, amb.Scope3Rate, years),
		Trajectory:    make([]TrajectoryPoint, 0, years+1),
	}
	for y := baseYear; y <= targetYear; y++ {
		out.Trajectory = append(out.Trajectory, point(base, amb.Scope12Rate, baseYear, y))
	}

	milestone := func(kind MilestoneKind, year int) Milestone {
		return Milestone{Kind: kind, TrajectoryPoint: point(base, amb.Scope12Rate, baseYear, year)}
	}
	nearTerm := max(min(currentYear+c.nearTermHorizon, targetYear), baseYear)
	if nearTerm < targetYear {
		out.Milestones = append(out.Milestones, milestone(MilestoneNearTerm, nearTerm))
	}
	if c.checkpointYear >= baseYear && c.checkpointYear < targetYear && c.checkpointYear != nearTerm {
		out.Milestones = append(out.Milestones, milestone(MilestoneCheckpoint, c.checkpointYear))
	}
	out.Milestones = append(out.Milestones, milestone(MilestoneTarget, targetYear))
	slices.SortStableFunc(out.Milestones, func(a, b Milestone) int { return cmp.Compare(a.Year, b.Year) })
	return out, nil
}

// Gap compares actual emissions with the expected trajectory.
type Gap struct {
	Ambition                  string  `json:"ambition"`
	CurrentYear               int     `json:"current_year"`
	CurrentEmissions          float64 `json:"current_emissions"`
	ExpectedEmissions         float64 `json:"expected_emissions"`
	GapAbsolute               float64 `json:"gap_absolute"`
	GapPercent                float64 `json:"gap_percent"`
	OnTrack                   bool    `json:"on_track"`
	TargetEmissions           float64 `json:"target_emissions"`
	YearsRemaining            int     `json:"years_remaining"`
	RequiredAnnualRatePercent float64 `json:"required_annual_rate_percent"`
	RequiredRateDefined       bool    `json:"required_rate_defined"`
	StandardRatePercent       float64 `json:"standard_rate_percent"`
	AccelerationNeededPercent float64 `json:"acceleration_needed_percent"`
}

// CalculateGap reports how far current emissions are from the scope 1+2
// trajectory and which annual rate would still reach the target. The required
// rate is undefined when no years remain or current emissions are zero.
func (c *Calculator) CalculateGap(
	base float64, baseYear int, current float64, currentYear, targetYear int, ambition string,
) (Gap, error) {
	if err := checkInputs(base, baseYear, targetYear); err != nil {
		return Gap{}, err
	}
	if current < 0 {
		return Gap{}, fmt.Errorf("%w: current %g", ErrNegativeEmissions, current)
	}
	if currentYear < baseYear {
		return Gap{}, fmt.Errorf("%w: current year %d before base year %d", ErrInvalidYearRange, currentYear, baseYear)
	}
	amb, err := c.rates.Lookup(ambition)
	if err != nil {
		return Gap{}, err
	}

	rate := amb.Scope12Rate
	expected := base * Remaining(rate, currentYear-baseYear)
	target := base * Remaining(rate, targetYear-baseYear)
	gap := Gap{
		Ambition:            amb.Name,
		CurrentYear:         currentYear,
		CurrentEmissions:    current,
		ExpectedEmissions:   expected,
		GapAbsolute:         current - expected,
		OnTrack:             current <= expected+math.Abs(expected)*onTrackTolerance,
		TargetEmissions:     target,
		YearsRemaining:      targetYear - currentYear,
		StandardRatePercent: rate,
	}
	if expected > 0 {
		gap.GapPercent = gap.GapAbsolute / expected * percent
	}
	if gap.YearsRemaining > 0 && current > 0 {
		gap.RequiredAnnualRatePercent = (1 - math.Pow(target/current, 1/float64(gap.YearsRemaining))) * percent
		gap.RequiredRateDefined = true
		gap.AccelerationNeededPercent = gap.RequiredAnnualRatePercent - rate
	}
	return gap, nil
}

// TierCompliance is the result of checking a target against one ambition.
type TierCompliance struct {
	Ambition                      string  `json:"ambition"`
	RequiredTotalReductionPercent float64 `json:"required_total_reduction_percent"`
	Compliant                     bool    `json:"compliant"`
}

// Validation is the result of ValidateTarget.
type Validation struct {
	ImpliedTotalReductionPercent float64          `json:"implied_total_reduction_percent"`
	ImpliedAnnualRatePercent     float64          `json:"implied_annual_rate_percent"`
	Tiers                        []TierCompliance `json:"tiers"`
	HighestAmbition              string           `json:"highest_ambition"`
}

// ValidateTarget checks a proposed base to target reduction against every
// tier. A tier is satisfied when the implied total reduction is at least the
// tier's scope 1+2 total reduction over the same span.
func (c *Calculator) ValidateTarget(base, target float64, baseYear, targetYear int) (Validation, error) {
	if base < 0 || target < 0 {
		return Validation{}, fmt.Errorf("%w: base %g, target %g", ErrNegativeEmissions, base, target)
	}
	if targetYear <= baseYear {
		return Validation{}, fmt.Errorf("%w: got %d..%d", ErrInvalidYearRange, baseYear, targetYear)
	}

	years := targetYear - baseYear
	v := Validation{HighestAmbition: AmbitionNone}
	if base > 0 {
		ratio := target / base
		v.ImpliedTotalReductionPercent = (1 - ratio) * percent
		v.ImpliedAnnualRatePercent = (1 - math.Pow(ratio, 1/float64(years))) * percent
	}

	for _, amb := range c.rates.ambitions {
		required := TotalReductionPercent(amb.Scope12Rate, years)
		compliant := base > 0 && v.ImpliedTotalReductionPercent >= required-onTrackTolerance
		v.Tiers = append(v.Tiers, TierCompliance{
			Ambition:                      amb.Name,
			RequiredTotalReductionPercent: required,
			Compliant:                     compliant,
		})
		if compliant && v.HighestAmbition == AmbitionNone {
			v.HighestAmbition = amb.Name
		}
	}
	return v, nil
}

// Scope3Requirement reports whether scope 3 targets are mandatory.
type Scope3Requirement struct {
	Required         bool     `json:"required"`
	Measured         bool     `json:"measured"`
	SharePercent     *float64 `json:"share_percent,omitempty"`
	ThresholdPercent float64  `json:"threshold_percent"`
}

// Scope3Required applies the materiality rule. Unmeasured scope 3 is assumed
// material. A nil scope 1 or scope 2 counts as zero.
func (c *Calculator) Scope3Required(scope1, scope2, scope3 *float64) Scope3Requirement {
	req := Scope3Requirement{ThresholdPercent: c.scope3Threshold}
	if scope3 == nil {
		req.Required = true
		return req
	}
	req.Measured = true
	combined := deref(scope1) + deref(scope2) + *scope3
	share := 0.0
	if combined > 0 {
		share = *scope3 / combined * percent
	}
	req.SharePercent = &share
	req.Required = combined > 0 && share >= c.scope3Threshold
	return req
}

func checkInputs(base float64, baseYear, targetYear int) error {
	if base < 0 || math.IsNaN(base) {
		return fmt.Errorf("%w: base %g", ErrNegativeEmissions, base)
	}
	if targetYear < baseYear {
		return fmt.Errorf("%w: got %d..%d", ErrInvalidYearRange, baseYear, targetYear)
	}
	return nil
}

func scopeTarget(base, rate float64, years int) ScopeTarget {
	return ScopeTarget{
		AnnualRatePercent:     rate,
		TotalReductionPercent: TotalReductionPercent(rate, years),
		TargetEmissions:       base * Remaining(rate, years),
	}
}

func point(base, rate float64, baseYear, year int) TrajectoryPoint {
	return TrajectoryPoint{
		Year:                     year,
		TargetEmissions:          base * Remaining(rate, year-baseYear),
		ReductionFromBasePercent: TotalReductionPercent(rate, year-baseYear),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
