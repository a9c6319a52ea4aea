package pagination

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/rshade/carbonfocus/internal/emission"
)

// Record sort fields.
const (
	SortByDate     = "date"
	SortByCO2e     = "co2e"
	SortByCategory = "category"
	SortByScope    = "scope"
	SortBySource   = "source"
)

//nolint:gochecknoglobals // Read-only comparator table.
var recordComparators = map[string]func(a, b emission.Record) int{
	SortByDate:     func(a, b emission.Record) int { return a.Date.Compare(b.Date) },
	SortByCO2e:     func(a, b emission.Record) int { return cmp.Compare(a.CO2eKg, b.CO2eKg) },
	SortByCategory: func(a, b emission.Record) int { return cmp.Compare(a.CategoryID, b.CategoryID) },
	SortByScope:    func(a, b emission.Record) int { return cmp.Compare(a.Scope, b.Scope) },
	SortBySource:   func(a, b emission.Record) int { return cmp.Compare(a.SourceID, b.SourceID) },
}

// RecordSortFields returns the accepted --sort fields in alphabetical order.
func RecordSortFields() []string {
	fields := make([]string, 0, len(recordComparators))
	for f := range recordComparators {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

// SortRecords returns a sorted copy of records. Ties are broken by record id
// ascending whatever the order, so output is deterministic. An empty field
// keeps the input order.
func SortRecords(records []emission.Record, field, order string) ([]emission.Record, error) {
	out := slices.Clone(records)
	if field == "" {
		return out, nil
	}
	compare, ok := recordComparators[strings.ToLower(field)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrInvalidSortField, field, strings.Join(RecordSortFields(), ", "))
	}
	slices.SortStableFunc(out, func(a, b emission.Record) int {
		c := compare(a, b)
		if order == SortOrderDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}
