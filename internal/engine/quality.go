package engine

import (
	"strings"

	"github.com/rshade/carbonfocus/internal/emission"
)

// QualityPolicy tiers records by how their factor was sourced.
type QualityPolicy struct {
	measurement   map[string]struct{}
	authoritative map[string]struct{}
}

// NewQualityPolicy builds a policy from source lists. Matching is case-insensitive.
func NewQualityPolicy(measurementSources, authoritativeSources []string) QualityPolicy {
	return QualityPolicy{
		measurement:   toSet(measurementSources),
		authoritative: toSet(authoritativeSources),
	}
}

// DefaultQualityPolicy returns the built-in source lists.
func DefaultQualityPolicy() QualityPolicy {
	return NewQualityPolicy(
		[]string{"direct_measurement", "meter", "supplier_specific"},
		[]string{"ademe", "base_carbone", "defra", "epa", "insee", "iea", "ghg_protocol"},
	)
}

// Tier returns primary for activities backed by a measurement source,
// secondary for factors from an authoritative dataset, tertiary otherwise.
func (p QualityPolicy) Tier(sourceType emission.SourceType, factorSource string) emission.DataQuality {
	source := strings.ToLower(strings.TrimSpace(factorSource))
	if _, ok := p.measurement[source]; ok && sourceType == emission.SourceActivity {
		return emission.QualityPrimary
	}
	if _, ok := p.authoritative[source]; ok {
		return emission.QualitySecondary
	}
	return emission.QualityTertiary
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
