// Package emission defines the GHG accounting domain model shared by the
// factor repository, the scope calculators and the emission engine.
//
// Reference data (categories, factors, organizations, sites) and raw inputs
// (transactions, activities) are owned by external collaborators. Records are
// the only entity this module produces.
package emission

import (
	"fmt"
	"maps"
	"time"
)

// Scope is the GHG Protocol scope of a category.
type Scope int

// GHG Protocol scopes.
const (
	Scope1 Scope = 1
	Scope2 Scope = 2
	Scope3 Scope = 3
)

// IsValid reports whether s is one of the three GHG Protocol scopes.
func (s Scope) IsValid() bool {
	return s == Scope1 || s == Scope2 || s == Scope3
}

// String returns a human-readable representation of the scope.
func (s Scope) String() string {
	if s.IsValid() {
		return fmt.Sprintf("scope_%d", int(s))
	}
	return fmt.Sprintf("Scope(%d)", int(s))
}

// GHGCategory is the enumerated activity type of a category.
type GHGCategory string

// GHGCategoryExcluded marks categories that never produce emissions
// (internal transfers, taxes, salaries...).
const GHGCategoryExcluded GHGCategory = "excluded"

// Common GHG categories. The set is open: collaborators may define more.
const (
	GHGCategoryStationaryCombustion GHGCategory = "stationary_combustion"
	GHGCategoryMobileCombustion     GHGCategory = "mobile_combustion"
	GHGCategoryFugitive             GHGCategory = "fugitive_emissions"
	GHGCategoryElectricity          GHGCategory = "electricity"
	GHGCategoryHeatSteam            GHGCategory = "heat_steam"
	GHGCategoryPurchasedGoods       GHGCategory = "purchased_goods"
	GHGCategoryBusinessTravel       GHGCategory = "business_travel"
	GHGCategoryCommuting            GHGCategory = "employee_commuting"
	GHGCategoryFreight              GHGCategory = "freight"
	GHGCategoryWaste                GHGCategory = "waste"
)

// CalculationMethod describes how a category's quantity is measured.
type CalculationMethod string

// Calculation methods.
const (
	MethodSpendBased    CalculationMethod = "spend_based"
	MethodActivityBased CalculationMethod = "activity_based"
)

// OrDefault returns m, or MethodSpendBased when m is empty.
func (m CalculationMethod) OrDefault() CalculationMethod {
	if m == "" {
		return MethodSpendBased
	}
	return m
}

// DataQuality signals confidence in a computed record.
type DataQuality string

// Data quality tiers, best first.
const (
	QualityPrimary   DataQuality = "primary"
	QualitySecondary DataQuality = "secondary"
	QualityTertiary  DataQuality = "tertiary"
)

// SourceType identifies the kind of raw record an emission was computed from.
type SourceType string

// Source types.
const (
	SourceTransaction SourceType = "transaction"
	SourceActivity    SourceType = "activity"
)

// IsValid reports whether t is a known source type.
func (t SourceType) IsValid() bool {
	return t == SourceTransaction || t == SourceActivity
}

// Category identifies a GHG-accounting bucket.
type Category struct {
	ID                string            `yaml:"id"                          json:"id"`
	Name              string            `yaml:"name"                        json:"name"`
	Scope             Scope             `yaml:"scope"                       json:"scope"`
	GHGCategory       GHGCategory       `yaml:"ghg_category"                json:"ghg_category"`
	Scope3Category    int               `yaml:"scope_3_category,omitempty"  json:"scope_3_category,omitempty"`
	CalculationMethod CalculationMethod `yaml:"calculation_method,omitempty" json:"calculation_method,omitempty"`
}

// IsExcluded reports whether the category is flagged as excluded from accounting.
func (c Category) IsExcluded() bool {
	return c.GHGCategory == GHGCategoryExcluded
}

// Factor is a versioned conversion factor from a quantity to kg CO2e.
type Factor struct {
	ID                 string    `yaml:"id"                            json:"id"`
	CategoryID         string    `yaml:"category_id"                   json:"category_id"`
	Name               string    `yaml:"name"                          json:"name"`
	FactorKgCO2e       float64   `yaml:"factor_kg_co2e"                json:"factor_kg_co2e"`
	FactorKgCO2        *float64  `yaml:"factor_kg_co2,omitempty"       json:"factor_kg_co2,omitempty"`
	FactorKgCH4        *float64  `yaml:"factor_kg_ch4,omitempty"       json:"factor_kg_ch4,omitempty"`
	FactorKgN2O        *float64  `yaml:"factor_kg_n2o,omitempty"       json:"factor_kg_n2o,omitempty"`
	Unit               string    `yaml:"unit"                          json:"unit"`
	Country            string    `yaml:"country,omitempty"             json:"country,omitempty"`
	Source             string    `yaml:"source,omitempty"              json:"source,omitempty"`
	FuelType           string    `yaml:"fuel_type,omitempty"           json:"fuel_type,omitempty"`
	UncertaintyPercent float64   `yaml:"uncertainty_percent,omitempty" json:"uncertainty_percent,omitempty"`
	ValidFrom          time.Time `yaml:"valid_from,omitempty"          json:"valid_from,omitempty"`
	ValidUntil         time.Time `yaml:"valid_until,omitempty"         json:"valid_until,omitempty"`
	Priority           int       `yaml:"priority,omitempty"            json:"priority,omitempty"`
}

// IsGeneric reports whether the factor is country-agnostic.
func (f Factor) IsGeneric() bool {
	return f.Country == ""
}

// ValidAt reports whether date falls inside the factor's validity window.
// Bounds and date are compared as UTC calendar days, so a factor valid until
// 2024-12-31 covers all of that day. Zero bounds are open-ended.
func (f Factor) ValidAt(date time.Time) bool {
	d := Day(date)
	if !f.ValidFrom.IsZero() && d.Before(Day(f.ValidFrom)) {
		return false
	}
	if !f.ValidUntil.IsZero() && d.After(Day(f.ValidUntil)) {
		return false
	}
	return true
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Clone returns a deep copy of f.
func (f Factor) Clone() Factor {
	out := f
	out.FactorKgCO2 = copyFloat(f.FactorKgCO2)
	out.FactorKgCH4 = copyFloat(f.FactorKgCH4)
	out.FactorKgN2O = copyFloat(f.FactorKgN2O)
	return out
}

// Snapshot freezes the factor values used for a calculation.
func (f Factor) Snapshot(capturedAt time.Time) FactorSnapshot {
	return FactorSnapshot{
		FactorID:           f.ID,
		Name:               f.Name,
		Source:             f.Source,
		Unit:               f.Unit,
		Country:            f.Country,
		FuelType:           f.FuelType,
		FactorKgCO2e:       f.FactorKgCO2e,
		FactorKgCO2:        copyFloat(f.FactorKgCO2),
		FactorKgCH4:        copyFloat(f.FactorKgCH4),
		FactorKgN2O:        copyFloat(f.FactorKgN2O),
		UncertaintyPercent: f.UncertaintyPercent,
		ValidFrom:          f.ValidFrom,
		ValidUntil:         f.ValidUntil,
		CapturedAt:         capturedAt,
	}
}

// FactorSnapshot is the copy of a factor stored on a record. Later edits to the
// factor never rewrite it.
type FactorSnapshot struct {
	FactorID           string    `json:"factor_id"`
	Name               string    `json:"name"`
	Source             string    `json:"source,omitempty"`
	Unit               string    `json:"unit"`
	Country            string    `json:"country,omitempty"`
	FuelType           string    `json:"fuel_type,omitempty"`
	FactorKgCO2e       float64   `json:"factor_kg_co2e"`
	FactorKgCO2        *float64  `json:"factor_kg_co2,omitempty"`
	FactorKgCH4        *float64  `json:"factor_kg_ch4,omitempty"`
	FactorKgN2O        *float64  `json:"factor_kg_n2o,omitempty"`
	UncertaintyPercent float64   `json:"uncertainty_percent,omitempty"`
	ValidFrom          time.Time `json:"valid_from,omitzero"`
	ValidUntil         time.Time `json:"valid_until,omitzero"`
	CapturedAt         time.Time `json:"captured_at"`
}

// Breakdown is the GHG result of a single scope calculation.
type Breakdown struct {
	CO2eKg      float64  `json:"co2e_kg"`
	CO2Kg       *float64 `json:"co2_kg,omitempty"`
	CH4Kg       *float64 `json:"ch4_kg,omitempty"`
	N2OKg       *float64 `json:"n2o_kg,omitempty"`
	IsEstimated bool     `json:"is_estimated"`
	Notes       string   `json:"notes,omitempty"`
}

// Record is a computed emission, one per (organization, source type, source id).
type Record struct {
	ID                string            `json:"id"`
	OrganizationID    string            `json:"organization_id"`
	SiteID            string            `json:"site_id,omitempty"`
	CategoryID        string            `json:"category_id"`
	EmissionFactorID  string            `json:"emission_factor_id"`
	Date              time.Time         `json:"date"`
	Scope             Scope             `json:"scope"`
	GHGCategory       GHGCategory       `json:"ghg_category"`
	Quantity          float64           `json:"quantity"`
	Unit              string            `json:"unit"`
	FactorSnapshot    FactorSnapshot    `json:"factor_snapshot"`
	CO2eKg            float64           `json:"co2e_kg"`
	CO2Kg             *float64          `json:"co2_kg,omitempty"`
	CH4Kg             *float64          `json:"ch4_kg,omitempty"`
	N2OKg             *float64          `json:"n2o_kg,omitempty"`
	IsEstimated       bool              `json:"is_estimated"`
	Notes             string            `json:"notes,omitempty"`
	DataQuality       DataQuality       `json:"data_quality"`
	SourceType        SourceType        `json:"source_type"`
	SourceID          string            `json:"source_id"`
	CalculationMethod CalculationMethod `json:"calculation_method"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	CalculatedAt      time.Time         `json:"calculated_at"`
}

// Key returns the record's upsert identity.
func (r Record) Key() RecordKey {
	return RecordKey{OrganizationID: r.OrganizationID, SourceType: r.SourceType, SourceID: r.SourceID}
}

// Clone returns a deep copy of r so callers cannot alias stored state.
func (r Record) Clone() Record {
	out := r
	out.CO2Kg = copyFloat(r.CO2Kg)
	out.CH4Kg = copyFloat(r.CH4Kg)
	out.N2OKg = copyFloat(r.N2OKg)
	out.FactorSnapshot.FactorKgCO2 = copyFloat(r.FactorSnapshot.FactorKgCO2)
	out.FactorSnapshot.FactorKgCH4 = copyFloat(r.FactorSnapshot.FactorKgCH4)
	out.FactorSnapshot.FactorKgN2O = copyFloat(r.FactorSnapshot.FactorKgN2O)
	if r.Metadata != nil {
		out.Metadata = maps.Clone(r.Metadata)
	}
	return out
}

// RecordKey is the composite key enforcing one record per source.
type RecordKey struct {
	OrganizationID string
	SourceType     SourceType
	SourceID       string
}

// String renders the key as org/type/id.
func (k RecordKey) String() string {
	return k.OrganizationID + "/" + string(k.SourceType) + "/" + k.SourceID
}

// Organization is the accounting entity records belong to.
type Organization struct {
	ID      string `yaml:"id"                json:"id"`
	Name    string `yaml:"name,omitempty"    json:"name,omitempty"`
	Country string `yaml:"country,omitempty" json:"country,omitempty"`
}

// Site is a physical location of an organization.
type Site struct {
	ID             string `yaml:"id"                json:"id"`
	OrganizationID string `yaml:"organization_id"   json:"organization_id"`
	Name           string `yaml:"name,omitempty"    json:"name,omitempty"`
	Country        string `yaml:"country,omitempty" json:"country,omitempty"`
}

// Transaction is a bank transaction assigned to a category.
type Transaction struct {
	ID             string    `yaml:"id"                    json:"id"`
	OrganizationID string    `yaml:"organization_id"       json:"organization_id"`
	SiteID         string    `yaml:"site_id,omitempty"     json:"site_id,omitempty"`
	CategoryID     string    `yaml:"category_id,omitempty" json:"category_id,omitempty"`
	Date           time.Time `yaml:"date"                  json:"date"`
	Amount         float64   `yaml:"amount"                json:"amount"`
	Currency       string    `yaml:"currency"              json:"currency"`
	Label          string    `yaml:"label,omitempty"       json:"label,omitempty"`
	Country        string    `yaml:"country,omitempty"     json:"country,omitempty"`
	Excluded       bool      `yaml:"excluded,omitempty"    json:"excluded,omitempty"`
}

// Activity is a manually entered or metered physical activity.
//
// Measured is recorded in the record metadata only. Data quality depends on
// the source type and the factor source, not on this flag.
type Activity struct {
	ID             string    `yaml:"id"                    json:"id"`
	OrganizationID string    `yaml:"organization_id"       json:"organization_id"`
	SiteID         string    `yaml:"site_id,omitempty"     json:"site_id,omitempty"`
	CategoryID     string    `yaml:"category_id"           json:"category_id"`
	Date           time.Time `yaml:"date"                  json:"date"`
	Quantity       float64   `yaml:"quantity"              json:"quantity"`
	Unit           string    `yaml:"unit"                  json:"unit"`
	Country        string    `yaml:"country,omitempty"     json:"country,omitempty"`
	Description    string    `yaml:"description,omitempty" json:"description,omitempty"`
	Measured       bool      `yaml:"measured,omitempty"    json:"measured,omitempty"`
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Float returns a pointer to v. Convenience for optional gas factors.
func Float(v float64) *float64 {
	return &v
}
