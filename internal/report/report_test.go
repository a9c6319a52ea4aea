package report_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/report"
	"github.com/rshade/carbonfocus/internal/targets"
)

func sampleSummary() engine.Summary {
	year := 2024
	return engine.Summarize("acme", &year, []emission.Record{
		{
			Scope: emission.Scope2, CategoryID: "electricity", DataQuality: emission.QualityPrimary,
			Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), CO2eKg: 100,
		},
		{
			Scope: emission.Scope3, CategoryID: "travel", DataQuality: emission.QualityTertiary,
			Date: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), CO2eKg: 50, IsEstimated: true,
		},
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    report.Format
		wantErr bool
	}{
		{"", report.FormatTable, false},
		{"table", report.FormatTable, false},
		{" JSON ", report.FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := report.ParseFormat(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, report.ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummary_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatTable).Summary(sampleSummary()))

	out := buf.String()
	assert.Contains(t, out, "EMISSIONS SUMMARY: acme (2024)")
	assert.Contains(t, out, "150.00 kgCO2e")
	assert.Contains(t, out, "Equivalent to driving ~614 km or charging ~18,248 smartphones")
	assert.Contains(t, out, "BY SCOPE")
	assert.Contains(t, out, "scope_2")
	assert.Contains(t, out, "66.7%")
	assert.Contains(t, out, "BY MONTH")
	assert.Contains(t, out, "2024-02")
	assert.NotContains(t, out, "\x1b[", "buffers get plain output")
}

func TestSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatTable).Summary(engine.Summarize("acme", nil, nil)))
	assert.Contains(t, buf.String(), "No emission records found.")
	assert.NotContains(t, buf.String(), "BY SCOPE")
}

func TestSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatJSON).Summary(sampleSummary()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.InDelta(t, 150.0, got["total_kg"], 1e-9)
	assert.Len(t, got["by_scope"], 2)
	require.Contains(t, got, "equivalencies")
}

func TestSummary_Styled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatTable, report.WithStyle(true)).Summary(sampleSummary()))
	assert.Contains(t, buf.String(), "EMISSIONS SUMMARY: acme (2024)")
	assert.NotContains(t, buf.String(), "=====")
}

func TestBatchStats(t *testing.T) {
	st := engine.BatchStats{Processed: 6, Created: 3, Skipped: 2, Errors: 1, Duration: 1500 * time.Millisecond}

	var table bytes.Buffer
	require.NoError(t, report.New(&table, report.FormatTable).BatchStats("acme", st))
	assert.Contains(t, table.String(), "RECALCULATION: acme")
	assert.Contains(t, table.String(), "1.5s")

	var js bytes.Buffer
	require.NoError(t, report.New(&js, report.FormatJSON).BatchStats("acme", st))
	var got map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &got))
	assert.Equal(t, "acme", got["organization_id"])
	assert.InDelta(t, 6.0, got["processed"], 0)
	assert.InDelta(t, 1500.0, got["duration_ms"], 0)
}

func TestFactor(t *testing.T) {
	f := &emission.Factor{
		ID: "diesel", Name: "Diesel", CategoryID: "fuel", FactorKgCO2e: 2.5, FactorKgCO2: emission.Float(2.4),
		Unit: "L", Source: "ademe", ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Priority: 3,
	}

	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatTable).Factor(f))
	out := buf.String()
	assert.Contains(t, out, "EMISSION FACTOR: diesel")
	assert.Contains(t, out, "2.5 kgCO2e/L")
	assert.Contains(t, out, "2.4 kg/L")
	assert.NotContains(t, out, "CH4")
	assert.Contains(t, out, "generic")
	assert.Contains(t, out, "2024-01-01 to open")

	buf.Reset()
	require.NoError(t, report.New(&buf, report.FormatTable).Factor(nil))
	assert.Equal(t, "No matching emission factor.\n", buf.String())

	buf.Reset()
	require.NoError(t, report.New(&buf, report.FormatJSON).Factor(nil))
	assert.Equal(t, "null\n", buf.String())
}

func TestTargets(t *testing.T) {
	calc := targets.NewCalculator()
	tg, err := calc.CalculateTargets(1000, 2020, 2030, targets.Ambition15C, 2024)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatTable).Targets(tg))
	out := buf.String()
	assert.Contains(t, out, "SBTI TARGETS: 1.5°C (2020 to 2030)")
	assert.Contains(t, out, "near_term")
	assert.Contains(t, out, "2029")
	assert.Contains(t, out, "4.20%")
	assert.Contains(t, out, "TRAJECTORY")

	buf.Reset()
	require.NoError(t, report.New(&buf, report.FormatJSON).Targets(tg))
	var got targets.Targets
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, tg.Milestones, got.Milestones)
}

func TestGap(t *testing.T) {
	calc := targets.NewCalculator()
	gap, err := calc.CalculateGap(1000, 2020, 1000, 2024, 2030, targets.Ambition15C)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatTable).Gap(gap))
	assert.Contains(t, buf.String(), "TARGET GAP: 1.5c (2024)")
	assert.Contains(t, buf.String(), "OFF TRACK")
	assert.Contains(t, buf.String(), "Years remaining:")
}

func TestValidation(t *testing.T) {
	calc := targets.NewCalculator()
	v, err := calc.ValidateTarget(1000, 500, 2020, 2030)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatTable).Validation(v))
	out := buf.String()
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "TIERS")
	assert.Contains(t, out, "yes")

	none, err := calc.ValidateTarget(1000, 990, 2020, 2030)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, report.New(&buf, report.FormatTable).Validation(none))
	assert.Contains(t, buf.String(), "none")
}

func TestScope3(t *testing.T) {
	calc := targets.NewCalculator()

	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatTable).Scope3(calc.Scope3Required(nil, nil, nil)))
	assert.Contains(t, buf.String(), "required")
	assert.Contains(t, buf.String(), "not measured")

	buf.Reset()
	s1, s2, s3 := 100.0, 100.0, 50.0
	require.NoError(t, report.New(&buf, report.FormatTable).Scope3(calc.Scope3Required(&s1, &s2, &s3)))
	assert.Contains(t, buf.String(), "not required")
	assert.Contains(t, buf.String(), "20.00%")
}

func TestWithPrecision(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatTable, report.WithPrecision(0)).Summary(sampleSummary()))
	assert.Contains(t, buf.String(), "150 kgCO2e")
}

func TestRecords(t *testing.T) {
	records := []emission.Record{{
		ID: "r1", Date: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), Scope: emission.Scope3,
		CategoryID: "travel", SourceType: emission.SourceTransaction, SourceID: "tx-1",
		Quantity: 420.5, Unit: "EUR", CO2eKg: 105.125, IsEstimated: true,
		DataQuality: emission.QualitySecondary, EmissionFactorID: "travel-eur",
	}}

	var buf bytes.Buffer
	require.NoError(t, report.New(&buf, report.FormatTable, report.WithPrecision(3)).Records(records, nil, "Showing 1 of 1"))
	out := buf.String()
	assert.Contains(t, out, "2024-03-04")
	assert.Contains(t, out, "transaction:tx-1")
	assert.Contains(t, out, "420.5 EUR")
	assert.Contains(t, out, "105.125*")
	assert.Contains(t, out, "Showing 1 of 1")

	buf.Reset()
	require.NoError(t, report.New(&buf, report.FormatJSON).Records(nil, map[string]int{"total_items": 0}, ""))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []any{}, got["records"])
	assert.Contains(t, got, "pagination")
}
