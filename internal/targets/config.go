package targets

import (
	"fmt"

	"github.com/rshade/carbonfocus/internal/config"
)

// FromConfig builds a Calculator from the targets configuration section.
// Zero thresholds and years fall back to the defaults.
func FromConfig(cfg config.TargetsConfig) (*Calculator, error) {
	ambitions := make([]Ambition, 0, len(cfg.Ambitions))
	for _, a := range cfg.Ambitions {
		ambitions = append(ambitions, Ambition{
			Name:        a.Name,
			Label:       a.Label,
			Scope12Rate: a.Scope12Rate,
			Scope3Rate:  a.Scope3Rate,
		})
	}
	table, err := NewRateTable(ambitions)
	if err != nil {
		return nil, fmt.Errorf("building rate table: %w", err)
	}

	opts := []Option{WithRateTable(table)}
	if cfg.Scope3ThresholdPercent > 0 {
		opts = append(opts, WithScope3Threshold(cfg.Scope3ThresholdPercent))
	}
	if cfg.NearTermHorizonYears > 0 {
		opts = append(opts, WithNearTermHorizon(cfg.NearTermHorizonYears))
	}
	if cfg.CheckpointYear > 0 {
		opts = append(opts, WithCheckpointYear(cfg.CheckpointYear))
	}
	return NewCalculator(opts...), nil
}
