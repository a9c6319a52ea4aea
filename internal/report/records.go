package report

import (
	"fmt"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/greenops"
)

// Records renders a page of emission records. meta is emitted verbatim as
// the "pagination" member in JSON, and footer is printed below the table.
func (r *Renderer) Records(records []emission.Record, meta any, footer string) error {
	if r.format == FormatJSON {
		if records == nil {
			records = []emission.Record{}
		}
		return r.writeJSON(struct {
			Records    []emission.Record `json:"records"`
			Pagination any               `json:"pagination,omitempty"`
		}{records, meta})
	}

	if len(records) == 0 {
		fmt.Fprintln(r.w, "No emission records found.")
		return nil
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		estimated := ""
		if rec.IsEstimated {
			estimated = "*"
		}
		rows = append(rows, []string{
			rec.Date.UTC().Format("2006-01-02"),
			rec.Scope.String(),
			rec.CategoryID,
			string(rec.SourceType) + ":" + rec.SourceID,
			fmt.Sprintf("%g %s", rec.Quantity, rec.Unit),
			greenops.FormatFloat(rec.CO2eKg, r.precision) + estimated,
			string(rec.DataQuality),
			rec.EmissionFactorID,
		})
	}
	if err := r.table(
		[]string{"DATE", "SCOPE", "CATEGORY", "SOURCE", "QUANTITY", "KG CO2E", "QUALITY", "FACTOR"}, rows,
	); err != nil {
		return err
	}
	if footer != "" {
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, footer)
	}
	return nil
}
