package report

import (
	"fmt"
	"strconv"

	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/targets"
)

func (r *Renderer) pct(v float64) string {
	return greenops.FormatFloat(v, r.precision) + "%"
}

func (r *Renderer) mass(v float64) string {
	return greenops.FormatFloat(v, r.precision)
}

// Targets renders reduction targets and the scope 1+2 trajectory.
func (r *Renderer) Targets(t targets.Targets) error {
	if r.format == FormatJSON {
		return r.writeJSON(t)
	}

	label := t.Ambition.Label
	if label == "" {
		label = t.Ambition.Name
	}
	r.title(fmt.Sprintf("SBTI TARGETS: %s (%d to %d)", label, t.BaseYear, t.TargetYear))
	if err := r.fields([][2]string{
		{"Base emissions", r.mass(t.BaseEmissions)},
	}); err != nil {
		return err
	}

	r.section("TARGETS")
	if err := r.table(
		[]string{"SCOPE", "ANNUAL RATE", "TOTAL REDUCTION", "TARGET EMISSIONS"},
		[][]string{
			{"scope 1+2", r.pct(t.Scope12.AnnualRatePercent), r.pct(t.Scope12.TotalReductionPercent), r.mass(t.Scope12.TargetEmissions)},
			{"scope 3", r.pct(t.Scope3.AnnualRatePercent), r.pct(t.Scope3.TotalReductionPercent), r.mass(t.Scope3.TargetEmissions)},
		},
	); err != nil {
		return err
	}

	if len(t.Milestones) > 0 {
		r.section("MILESTONES")
		rows := make([][]string, 0, len(t.Milestones))
		for _, m := range t.Milestones {
			rows = append(rows, []string{string(m.Kind), strconv.Itoa(m.Year), r.mass(m.TargetEmissions), r.pct(m.ReductionFromBasePercent)})
		}
		if err := r.table([]string{"MILESTONE", "YEAR", "TARGET EMISSIONS", "REDUCTION"}, rows); err != nil {
			return err
		}
	}

	r.section("TRAJECTORY (SCOPE 1+2)")
	rows := make([][]string, 0, len(t.Trajectory))
	for _, p := range t.Trajectory {
		rows = append(rows, []string{strconv.Itoa(p.Year), r.mass(p.TargetEmissions), r.pct(p.ReductionFromBasePercent)})
	}
	return r.table([]string{"YEAR", "TARGET EMISSIONS", "REDUCTION"}, rows)
}

// Gap renders progress against the expected trajectory.
func (r *Renderer) Gap(g targets.Gap) error {
	if r.format == FormatJSON {
		return r.writeJSON(g)
	}

	r.title(fmt.Sprintf("TARGET GAP: %s (%d)", g.Ambition, g.CurrentYear))
	status := "OFF TRACK"
	if g.OnTrack {
		status = "ON TRACK"
	}
	r.highlight(status)

	required := "n/a"
	if g.RequiredRateDefined {
		required = r.pct(g.RequiredAnnualRatePercent)
	}
	return r.fields([][2]string{
		{"Current emissions", r.mass(g.CurrentEmissions)},
		{"Expected emissions", r.mass(g.ExpectedEmissions)},
		{"Gap", fmt.Sprintf("%s (%s)", r.mass(g.GapAbsolute), r.pct(g.GapPercent))},
		{"Target emissions", r.mass(g.TargetEmissions)},
		{"Years remaining", strconv.Itoa(g.YearsRemaining)},
		{"Required annual rate", required},
		{"Standard annual rate", r.pct(g.StandardRatePercent)},
		{"Acceleration needed", r.pct(g.AccelerationNeededPercent)},
	})
}

// Validation renders a target's compliance with each ambition tier.
func (r *Renderer) Validation(v targets.Validation) error {
	if r.format == FormatJSON {
		return r.writeJSON(v)
	}

	r.title("TARGET VALIDATION")
	highest := v.HighestAmbition
	if highest == "" {
		highest = "none"
	}
	if err := r.fields([][2]string{
		{"Implied total reduction", r.pct(v.ImpliedTotalReductionPercent)},
		{"Implied annual rate", r.pct(v.ImpliedAnnualRatePercent)},
		{"Highest ambition met", highest},
	}); err != nil {
		return err
	}

	r.section("TIERS")
	rows := make([][]string, 0, len(v.Tiers))
	for _, tier := range v.Tiers {
		mark := "no"
		if tier.Compliant {
			mark = "yes"
		}
		rows = append(rows, []string{tier.Ambition, r.pct(tier.RequiredTotalReductionPercent), mark})
	}
	return r.table([]string{"AMBITION", "REQUIRED REDUCTION", "COMPLIANT"}, rows)
}

// Scope3 renders the scope 3 materiality check.
func (r *Renderer) Scope3(req targets.Scope3Requirement) error {
	if r.format == FormatJSON {
		return r.writeJSON(req)
	}

	r.title("SCOPE 3 REQUIREMENT")
	required := "not required"
	if req.Required {
		required = "required"
	}
	share := "not measured"
	if req.SharePercent != nil {
		share = r.pct(*req.SharePercent)
	}
	return r.fields([][2]string{
		{"Scope 3 target", required},
		{"Scope 3 share", share},
		{"Threshold", r.pct(req.ThresholdPercent)},
	})
}
