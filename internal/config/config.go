// Package config loads carbonfocus configuration from ~/.carbonfocus/config.yaml,
// an optional project overlay, and CARBONFOCUS_* environment variables.
//
// Precedence, lowest first: built-in defaults, global config file, project
// overlay (shallow merge per top-level section), environment, CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// Defaults.
const (
	DefaultFactorTTLSeconds       = 900
	DefaultCacheMaxEntries        = 10000
	DefaultBatchWorkers           = 4
	DefaultBatchSize              = 100
	DefaultScope3ThresholdPercent = 40.0
	DefaultNearTermHorizonYears   = 5
	DefaultCheckpointYear         = 2030
	DefaultOutputPrecision        = 2
	defaultConfigFileName         = "config.yaml"
)

// Validation errors.
var (
	ErrUnknownDriver       = errors.New("store driver must be 'memory', 'sqlite' or 'postgres'")
	ErrDSNRequired         = errors.New("store dsn is required for sqlite and postgres drivers")
	ErrInvalidCacheTTL     = errors.New("cache factor_ttl_seconds must be >= 0")
	ErrInvalidCacheSize    = errors.New("cache max_entries must be >= 0")
	ErrInvalidWorkers      = errors.New("batch workers must be between 1 and 64")
	ErrInvalidBatchSize    = errors.New("batch size must be between 1 and 1000")
	ErrNoAmbitions         = errors.New("targets must define at least one ambition")
	ErrInvalidAmbitionRate = errors.New("ambition rates must be in (0, 100)")
	ErrDuplicateAmbition   = errors.New("ambition names must be unique")
	ErrInvalidThreshold    = errors.New("scope 3 threshold must be between 0 and 100")
	ErrInvalidOutputFormat = errors.New("output format must be 'table' or 'json'")
)

// Config is the root configuration document.
type Config struct {
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Store   StoreConfig   `yaml:"store"   json:"store"`
	Cache   CacheConfig   `yaml:"cache"   json:"cache"`
	Batch   BatchConfig   `yaml:"batch"   json:"batch"`
	Targets TargetsConfig `yaml:"targets" json:"targets"`
	Quality QualityConfig `yaml:"quality" json:"quality"`
	Output  OutputConfig  `yaml:"output"  json:"output"`
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"           json:"level"           env:"CARBONFOCUS_LOG_LEVEL"`
	Format string `yaml:"format"          json:"format"          env:"CARBONFOCUS_LOG_FORMAT"`
	File   string `yaml:"file,omitempty"  json:"file,omitempty"  env:"CARBONFOCUS_LOG_FILE"`
	Caller bool   `yaml:"caller,omitempty" json:"caller,omitempty" env:"CARBONFOCUS_LOG_CALLER"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"        json:"driver"        env:"CARBONFOCUS_STORE_DRIVER"`
	DSN    string `yaml:"dsn,omitempty" json:"dsn,omitempty" env:"CARBONFOCUS_STORE_DSN"`
}

// CacheConfig bounds the factor lookup cache.
type CacheConfig struct {
	Enabled          bool `yaml:"enabled"            json:"enabled"            env:"CARBONFOCUS_CACHE_ENABLED"`
	FactorTTLSeconds int  `yaml:"factor_ttl_seconds" json:"factor_ttl_seconds" env:"CARBONFOCUS_CACHE_TTL_SECONDS"`
	MaxEntries       int  `yaml:"max_entries"        json:"max_entries"        env:"CARBONFOCUS_CACHE_MAX_ENTRIES"`
}

// BatchConfig controls organization-wide recalculation.
type BatchConfig struct {
	Workers   int `yaml:"workers"    json:"workers"    env:"CARBONFOCUS_BATCH_WORKERS"`
	BatchSize int `yaml:"batch_size" json:"batch_size" env:"CARBONFOCUS_BATCH_SIZE"`
}

// AmbitionConfig is one row of the reduction-rate table, in percent per year.
type AmbitionConfig struct {
	Name        string  `yaml:"name"         json:"name"`
	Label       string  `yaml:"label"        json:"label"`
	Scope12Rate float64 `yaml:"scope_12_rate" json:"scope_12_rate"`
	Scope3Rate  float64 `yaml:"scope_3_rate"  json:"scope_3_rate"`
}

// TargetsConfig holds the science-based target parameters. Ambitions are
// listed most ambitious first.
type TargetsConfig struct {
	Ambitions              []AmbitionConfig `yaml:"ambitions"                json:"ambitions"`
	Scope3ThresholdPercent float64          `yaml:"scope_3_threshold_percent" json:"scope_3_threshold_percent" env:"CARBONFOCUS_SCOPE3_THRESHOLD"`
	NearTermHorizonYears   int              `yaml:"near_term_horizon_years"   json:"near_term_horizon_years"`
	CheckpointYear         int              `yaml:"checkpoint_year"           json:"checkpoint_year"`
}

// QualityConfig lists factor sources used for data-quality tiering.
type QualityConfig struct {
	MeasurementSources   []string `yaml:"measurement_sources"   json:"measurement_sources"   env:"CARBONFOCUS_MEASUREMENT_SOURCES"   envSeparator:","`
	AuthoritativeSources []string `yaml:"authoritative_sources" json:"authoritative_sources" env:"CARBONFOCUS_AUTHORITATIVE_SOURCES" envSeparator:","`
}

// OutputConfig controls CLI rendering.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format" env:"CARBONFOCUS_OUTPUT_FORMAT"`
	Precision     int    `yaml:"precision"      json:"precision"`
}

// DefaultAmbitions returns the SBTi reduction-rate table.
func DefaultAmbitions() []AmbitionConfig {
	return []AmbitionConfig{
		{Name: "1.5c", Label: "1.5°C", Scope12Rate: 4.2, Scope3Rate: 2.5},
		{Name: "well_below_2c", Label: "Well-below 2°C", Scope12Rate: 2.5, Scope3Rate: 1.23},
		{Name: "2c", Label: "2°C", Scope12Rate: 1.23, Scope3Rate: 1.23},
	}
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Store:   StoreConfig{Driver: DriverMemory},
		Cache: CacheConfig{
			Enabled:          true,
			FactorTTLSeconds: DefaultFactorTTLSeconds,
			MaxEntries:       DefaultCacheMaxEntries,
		},
		Batch: BatchConfig{Workers: DefaultBatchWorkers, BatchSize: DefaultBatchSize},
		Targets: TargetsConfig{
			Ambitions:              DefaultAmbitions(),
			Scope3ThresholdPercent: DefaultScope3ThresholdPercent,
			NearTermHorizonYears:   DefaultNearTermHorizonYears,
			CheckpointYear:         DefaultCheckpointYear,
		},
		Quality: QualityConfig{
			MeasurementSources: []string{"direct_measurement", "meter", "supplier_specific"},
			AuthoritativeSources: []string{
				"ademe", "base_carbone", "defra", "epa", "insee", "iea", "ghg_protocol",
			},
		},
		Output: OutputConfig{DefaultFormat: FormatTable, Precision: DefaultOutputPrecision},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// Validate checks every section and joins the errors found.
func (c *Config) Validate() error {
	return errors.Join(
		c.Store.Validate(),
		c.Cache.Validate(),
		c.Batch.Validate(),
		c.Targets.Validate(),
		c.Output.Validate(),
	)
}

// Validate checks the store section.
func (s StoreConfig) Validate() error {
	switch s.Driver {
	case DriverMemory:
		return nil
	case DriverSQLite, DriverPostgres:
		if s.DSN == "" {
			return fmt.Errorf("%w: driver %q", ErrDSNRequired, s.Driver)
		}
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownDriver, s.Driver)
	}
}

// Validate checks the cache section.
func (c CacheConfig) Validate() error {
	if c.FactorTTLSeconds < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheTTL, c.FactorTTLSeconds)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheSize, c.MaxEntries)
	}
	return nil
}

// Validate checks the batch section.
func (b BatchConfig) Validate() error {
	const maxWorkers, maxBatch = 64, 1000
	if b.Workers < 1 || b.Workers > maxWorkers {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, b.Workers)
	}
	if b.BatchSize < 1 || b.BatchSize > maxBatch {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, b.BatchSize)
	}
	return nil
}

// Validate checks the targets section.
func (t TargetsConfig) Validate() error {
	if len(t.Ambitions) == 0 {
		return ErrNoAmbitions
	}
	seen := make(map[string]bool, len(t.Ambitions))
	for _, a := range t.Ambitions {
		if seen[a.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateAmbition, a.Name)
		}
		seen[a.Name] = true
		if a.Scope12Rate <= 0 || a.Scope12Rate >= 100 || a.Scope3Rate <= 0 || a.Scope3Rate >= 100 {
			return fmt.Errorf("%w: ambition %q", ErrInvalidAmbitionRate, a.Name)
		}
	}
	if t.Scope3ThresholdPercent < 0 || t.Scope3ThresholdPercent > 100 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidThreshold, t.Scope3ThresholdPercent)
	}
	return nil
}

// Validate checks the output section.
func (o OutputConfig) Validate() error {
	if o.DefaultFormat != FormatTable && o.DefaultFormat != FormatJSON {
		return fmt.Errorf("%w: got %q", ErrInvalidOutputFormat, o.DefaultFormat)
	}
	return nil
}
