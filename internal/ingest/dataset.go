// Package ingest loads reference and source datasets into a store.
//
// A dataset is a YAML or JSON document carrying categories, emission
// factors, organizations, sites, transactions and activities. Datasets are
// read from the local filesystem or from S3 (s3://bucket/key).
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/logging"
)

// SupportedSchema is the range of dataset schema versions this build reads.
const SupportedSchema = ">= 1.0.0, < 2.0.0"

// Format is the encoding of a dataset document.
type Format string

// Dataset encodings.
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// dateLayouts are accepted for every date field, most specific first.
//
//nolint:gochecknoglobals // Read-only lookup table.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// Dataset is the document root.
type Dataset struct {
	SchemaVersion string                  `yaml:"schema_version"          json:"schema_version"`
	Categories    []emission.Category     `yaml:"categories,omitempty"    json:"categories,omitempty"`
	Factors       []FactorRow             `yaml:"factors,omitempty"       json:"factors,omitempty"`
	Organizations []emission.Organization `yaml:"organizations,omitempty" json:"organizations,omitempty"`
	Sites         []emission.Site         `yaml:"sites,omitempty"         json:"sites,omitempty"`
	Transactions  []TransactionRow        `yaml:"transactions,omitempty"  json:"transactions,omitempty"`
	Activities    []ActivityRow           `yaml:"activities,omitempty"    json:"activities,omitempty"`
}

// FactorRow is an emission factor with string dates.
type FactorRow struct {
	ID                 string   `yaml:"id"                            json:"id"`
	CategoryID         string   `yaml:"category_id"                   json:"category_id"`
	Name               string   `yaml:"name,omitempty"                json:"name,omitempty"`
	FactorKgCO2e       float64  `yaml:"factor_kg_co2e"                json:"factor_kg_co2e"`
	FactorKgCO2        *float64 `yaml:"factor_kg_co2,omitempty"       json:"factor_kg_co2,omitempty"`
	FactorKgCH4        *float64 `yaml:"factor_kg_ch4,omitempty"       json:"factor_kg_ch4,omitempty"`
	FactorKgN2O        *float64 `yaml:"factor_kg_n2o,omitempty"       json:"factor_kg_n2o,omitempty"`
	Unit               string   `yaml:"unit"                          json:"unit"`
	Country            string   `yaml:"country,omitempty"             json:"country,omitempty"`
	Source             string   `yaml:"source,omitempty"              json:"source,omitempty"`
	FuelType           string   `yaml:"fuel_type,omitempty"           json:"fuel_type,omitempty"`
	UncertaintyPercent float64  `yaml:"uncertainty_percent,omitempty" json:"uncertainty_percent,omitempty"`
	ValidFrom          string   `yaml:"valid_from,omitempty"          json:"valid_from,omitempty"`
	ValidUntil         string   `yaml:"valid_until,omitempty"         json:"valid_until,omitempty"`
	Priority           int      `yaml:"priority,omitempty"            json:"priority,omitempty"`
}

// TransactionRow is a bank transaction with a string date.
type TransactionRow struct {
	ID             string  `yaml:"id"                    json:"id"`
	OrganizationID string  `yaml:"organization_id"       json:"organization_id"`
	SiteID         string  `yaml:"site_id,omitempty"     json:"site_id,omitempty"`
	CategoryID     string  `yaml:"category_id,omitempty" json:"category_id,omitempty"`
	Date           string  `yaml:"date"                  json:"date"`
	Amount         float64 `yaml:"amount"                json:"amount"`
	Currency       string  `yaml:"currency"              json:"currency"`
	Label          string  `yaml:"label,omitempty"       json:"label,omitempty"`
	Country        string  `yaml:"country,omitempty"     json:"country,omitempty"`
	Excluded       bool    `yaml:"excluded,omitempty"    json:"excluded,omitempty"`
}

// ActivityRow is an activity with a string date.
type ActivityRow struct {
	ID             string  `yaml:"id"                    json:"id"`
	OrganizationID string  `yaml:"organization_id"       json:"organization_id"`
	SiteID         string  `yaml:"site_id,omitempty"     json:"site_id,omitempty"`
	CategoryID     string  `yaml:"category_id"           json:"category_id"`
	Date           string  `yaml:"date"                  json:"date"`
	Quantity       float64 `yaml:"quantity"              json:"quantity"`
	Unit           string  `yaml:"unit"                  json:"unit"`
	Country        string  `yaml:"country,omitempty"     json:"country,omitempty"`
	Description    string  `yaml:"description,omitempty" json:"description,omitempty"`
	Measured       bool    `yaml:"measured,omitempty"    json:"measured,omitempty"`
}

// FormatFromPath guesses the encoding from a file name. Anything that is not
// .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Parse decodes and validates a dataset document.
func Parse(ctx context.Context, data []byte, format Format) (*Dataset, error) {
	log := logging.FromContext(ctx)
	log.Debug().
		Str("component", "ingest").
		Str("operation", "parse_dataset").
		Str("format", string(format)).
		Int("data_size_bytes", len(data)).
		Msg("parsing dataset")

	var ds Dataset
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &ds)
	case FormatYAML:
		err = yaml.Unmarshal(data, &ds)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s dataset: %w", format, err)
	}
	if err := CheckSchemaVersion(ds.SchemaVersion); err != nil {
		return nil, err
	}

	log.Debug().
		Str("component", "ingest").
		Str("schema_version", ds.SchemaVersion).
		Int("categories", len(ds.Categories)).
		Int("factors", len(ds.Factors)).
		Int("transactions", len(ds.Transactions)).
		Int("activities", len(ds.Activities)).
		Msg("dataset parsed")
	return &ds, nil
}

// CheckSchemaVersion reports whether version falls inside SupportedSchema.
func CheckSchemaVersion(version string) error {
	if strings.TrimSpace(version) == "" {
		return ErrMissingSchemaVersion
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSchemaVersion, version, err)
	}
	constraint, err := semver.NewConstraint(SupportedSchema)
	if err != nil {
		return fmt.Errorf("parsing supported schema constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedSchema, v, SupportedSchema)
	}
	return nil
}

// Factor converts the row to a domain factor.
func (r FactorRow) Factor() (emission.Factor, error) {
	from, err := parseDate(r.ValidFrom)
	if err != nil {
		return emission.Factor{}, fmt.Errorf("factor %s valid_from: %w", r.ID, err)
	}
	until, err := parseDate(r.ValidUntil)
	if err != nil {
		return emission.Factor{}, fmt.Errorf("factor %s valid_until: %w", r.ID, err)
	}
	return emission.Factor{
		ID:                 r.ID,
		CategoryID:         r.CategoryID,
		Name:               r.Name,
		FactorKgCO2e:       r.FactorKgCO2e,
		FactorKgCO2:        r.FactorKgCO2,
		FactorKgCH4:        r.FactorKgCH4,
		FactorKgN2O:        r.FactorKgN2O,
		Unit:               r.Unit,
		Country:            r.Country,
		Source:             r.Source,
		FuelType:           r.FuelType,
		UncertaintyPercent: r.UncertaintyPercent,
		ValidFrom:          from,
		ValidUntil:         until,
		Priority:           r.Priority,
	}, nil
}

// Transaction converts the row to a domain transaction.
func (r TransactionRow) Transaction() (emission.Transaction, error) {
	date, err := parseRequiredDate(r.Date)
	if err != nil {
		return emission.Transaction{}, fmt.Errorf("transaction %s date: %w", r.ID, err)
	}
	return emission.Transaction{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		SiteID:         r.SiteID,
		CategoryID:     r.CategoryID,
		Date:           date,
		Amount:         r.Amount,
		Currency:       r.Currency,
		Label:          r.Label,
		Country:        r.Country,
		Excluded:       r.Excluded,
	}, nil
}

// Activity converts the row to a domain activity.
func (r ActivityRow) Activity() (emission.Activity, error) {
	date, err := parseRequiredDate(r.Date)
	if err != nil {
		return emission.Activity{}, fmt.Errorf("activity %s date: %w", r.ID, err)
	}
	return emission.Activity{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		SiteID:         r.SiteID,
		CategoryID:     r.CategoryID,
		Date:           date,
		Quantity:       r.Quantity,
		Unit:           r.Unit,
		Country:        r.Country,
		Description:    r.Description,
		Measured:       r.Measured,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

func parseRequiredDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	return parseDate(s)
}
