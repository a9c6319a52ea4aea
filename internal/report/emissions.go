package report

import (
	"fmt"
	"strconv"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/greenops"
)

const percent = 100

type summaryJSON struct {
	engine.Summary

	Equivalencies *greenops.EquivalencyOutput `json:"equivalencies,omitempty"`
}

// Summary renders an organization's emissions summary.
func (r *Renderer) Summary(s engine.Summary) error {
	eq := greenops.FromKg(s.TotalKg)
	if r.format == FormatJSON {
		out := summaryJSON{Summary: s}
		if !eq.IsEmpty {
			out.Equivalencies = &eq
		}
		return r.writeJSON(out)
	}

	heading := "EMISSIONS SUMMARY: " + s.OrganizationID
	if s.Year != nil {
		heading += fmt.Sprintf(" (%d)", *s.Year)
	}
	r.title(heading)
	if err := r.fields([][2]string{
		{"Total", greenops.FormatMass(s.TotalKg, r.precision)},
		{"Records", greenops.FormatNumber(int64(s.RecordsCount))},
		{"Estimated", greenops.FormatNumber(int64(s.EstimatedCount))},
	}); err != nil {
		return err
	}
	if s.RecordsCount == 0 {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, "No emission records found.")
		return nil
	}
	if !eq.IsEmpty {
		fmt.Fprintln(r.w)
		r.highlight(eq.DisplayText)
	}

	sections := []struct {
		name   string
		groups []engine.Group
	}{
		{"BY SCOPE", s.ByScope},
		{"BY CATEGORY", s.ByCategory},
		{"BY DATA QUALITY", s.ByDataQuality},
		{"BY MONTH", s.ByMonth},
	}
	for _, sec := range sections {
		if len(sec.groups) == 0 {
			continue
		}
		r.section(sec.name)
		if err := r.groups(sec.groups, s.TotalKg); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) groups(groups []engine.Group, totalKg float64) error {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		share := "-"
		if totalKg > 0 {
			share = greenops.FormatFloat(g.TotalKg/totalKg*percent, 1) + "%"
		}
		rows = append(rows, []string{
			g.Key,
			greenops.FormatFloat(g.TotalKg, r.precision),
			greenops.FormatFloat(g.TotalTonnes, r.precision+1),
			strconv.Itoa(g.RecordsCount),
			share,
		})
	}
	return r.table([]string{"KEY", "KG CO2E", "TONNES", "RECORDS", "SHARE"}, rows)
}

// BatchStats renders the outcome of a recalculation run.
func (r *Renderer) BatchStats(orgID string, st engine.BatchStats) error {
	if r.format == FormatJSON {
		return r.writeJSON(struct {
			OrganizationID string `json:"organization_id"`
			engine.BatchStats
			DurationMs int64 `json:"duration_ms"`
		}{orgID, st, st.Duration.Milliseconds()})
	}

	r.title("RECALCULATION: " + orgID)
	return r.fields([][2]string{
		{"Processed", strconv.Itoa(st.Processed)},
		{"Created", strconv.Itoa(st.Created)},
		{"Updated", strconv.Itoa(st.Updated)},
		{"Skipped", strconv.Itoa(st.Skipped)},
		{"Errors", strconv.Itoa(st.Errors)},
		{"Duration", st.Duration.String()},
	})
}

// Factor renders the result of a factor lookup. A nil factor means no match.
func (r *Renderer) Factor(f *emission.Factor) error {
	if r.format == FormatJSON {
		return r.writeJSON(f)
	}
	if f == nil {
		fmt.Fprintln(r.w, "No matching emission factor.")
		return nil
	}

	r.title("EMISSION FACTOR: " + f.ID)
	country := f.Country
	if f.IsGeneric() {
		country = "generic"
	}
	pairs := [][2]string{
		{"Name", f.Name},
		{"Category", f.CategoryID},
		{"Factor", fmt.Sprintf("%g kgCO2e/%s", f.FactorKgCO2e, f.Unit)},
	}
	for _, gas := range []struct {
		label string
		value *float64
	}{{"CO2", f.FactorKgCO2}, {"CH4", f.FactorKgCH4}, {"N2O", f.FactorKgN2O}} {
		if gas.value != nil {
			pairs = append(pairs, [2]string{gas.label, fmt.Sprintf("%g kg/%s", *gas.value, f.Unit)})
		}
	}
	pairs = append(pairs,
		[2]string{"Country", country},
		[2]string{"Source", orDash(f.Source)},
		[2]string{"Valid", validity(f)},
		[2]string{"Priority", strconv.Itoa(f.Priority)},
	)
	if f.UncertaintyPercent > 0 {
		pairs = append(pairs, [2]string{"Uncertainty", fmt.Sprintf("±%g%%", f.UncertaintyPercent)})
	}
	return r.fields(pairs)
}

func validity(f *emission.Factor) string {
	from, until := "open", "open"
	if !f.ValidFrom.IsZero() {
		from = f.ValidFrom.Format("2006-01-02")
	}
	if !f.ValidUntil.IsZero() {
		until = f.ValidUntil.Format("2006-01-02")
	}
	return from + " to " + until
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
