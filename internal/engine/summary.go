package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/rshade/carbonfocus/internal/emission"
)

const kgPerTonne = 1000.0

// Group is one aggregation bucket of a Summary.
type Group struct {
	Key          string  `json:"key"`
	TotalKg      float64 `json:"total_kg"`
	TotalTonnes  float64 `json:"total_tonnes"`
	RecordsCount int     `json:"records_count"`
}

// Summary aggregates an organization's records.
type Summary struct {
	OrganizationID string  `json:"organization_id"`
	Year           *int    `json:"year,omitempty"`
	TotalKg        float64 `json:"total_kg"`
	TotalTonnes    float64 `json:"total_tonnes"`
	RecordsCount   int     `json:"records_count"`
	EstimatedCount int     `json:"estimated_count"`
	ByScope        []Group `json:"by_scope"`
	ByCategory     []Group `json:"by_category"`
	ByDataQuality  []Group `json:"by_data_quality"`
	ByMonth        []Group `json:"by_month"`
}

// ScopeKg returns the total kg of a scope, or nil when the organization has no
// record in that scope.
func (s Summary) ScopeKg(sc emission.Scope) *float64 {
	for _, g := range s.ByScope {
		if g.Key == sc.String() {
			v := g.TotalKg
			return &v
		}
	}
	return nil
}

// GetSummary groups an organization's records, optionally restricted to a year.
func (c *Calculator) GetSummary(ctx context.Context, orgID string, year *int) (Summary, error) {
	records, err := c.stores.Records.ListRecords(ctx, orgID, year)
	if err != nil {
		return Summary{}, fmt.Errorf("listing records: %w", err)
	}
	return Summarize(orgID, year, records), nil
}

// Summarize reduces records into a Summary. Groups are sorted by key.
func Summarize(orgID string, year *int, records []emission.Record) Summary {
	sum := Summary{OrganizationID: orgID, Year: year, RecordsCount: len(records)}
	byScope := map[string]*Group{}
	byCategory := map[string]*Group{}
	byQuality := map[string]*Group{}
	byMonth := map[string]*Group{}

	for _, r := range records {
		sum.TotalKg += r.CO2eKg
		if r.IsEstimated {
			sum.EstimatedCount++
		}
		add(byScope, r.Scope.String(), r.CO2eKg)
		add(byCategory, r.CategoryID, r.CO2eKg)
		add(byQuality, string(r.DataQuality), r.CO2eKg)
		add(byMonth, r.Date.UTC().Format("2006-01"), r.CO2eKg)
	}

	sum.TotalTonnes = sum.TotalKg / kgPerTonne
	sum.ByScope = flatten(byScope)
	sum.ByCategory = flatten(byCategory)
	sum.ByDataQuality = flatten(byQuality)
	sum.ByMonth = flatten(byMonth)
	return sum
}

func add(groups map[string]*Group, key string, kg float64) {
	g, ok := groups[key]
	if !ok {
		g = &Group{Key: key}
		groups[key] = g
	}
	g.TotalKg += kg
	g.RecordsCount++
}

func flatten(groups map[string]*Group) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		g.TotalTonnes = g.TotalKg / kgPerTonne
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b Group) int { return cmp.Compare(a.Key, b.Key) })
	return out
}
