// Package metrics exposes prometheus instrumentation for the emission engine.
//
// The CLI runs as a batch job, so metrics are exported to a node-exporter
// textfile rather than served over HTTP. Every method is safe on a nil
// *Metrics, which disables instrumentation.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carbonfocus"

// Cache lookup results.
const (
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultNegative = "negative"
)

// Metrics holds the engine collectors and the registry they belong to.
type Metrics struct {
	registry *prometheus.Registry

	factorLookups    *prometheus.CounterVec
	factorInvalidate prometheus.Counter
	outcomes         *prometheus.CounterVec
	emissionsKg      *prometheus.CounterVec
	batchDuration    prometheus.Histogram
	batchItems       *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		factorLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "factor_lookups_total",
			Help:      "Emission factor lookups by cache result.",
		}, []string{"result"}),
		factorInvalidate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "factor_cache_invalidations_total",
			Help:      "Factor cache invalidations.",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Emission calculations by outcome kind and reason.",
		}, []string{"outcome", "reason"}),
		emissionsKg: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emissions_kg_co2e_total",
			Help:      "kg CO2e materialized into records, by scope.",
		}, []string{"scope"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalculation_duration_seconds",
			Help:      "Duration of organization-wide recalculations.",
			Buckets:   prometheus.DefBuckets,
		}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculation_items_total",
			Help:      "Items handled by organization-wide recalculations, by status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.factorLookups,
		m.factorInvalidate,
		m.outcomes,
		m.emissionsKg,
		m.batchDuration,
		m.batchItems,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FactorLookup counts a factor lookup with one of the Result* values.
func (m *Metrics) FactorLookup(result string) {
	if m == nil {
		return
	}
	m.factorLookups.WithLabelValues(result).Inc()
}

// FactorInvalidation counts a cache invalidation.
func (m *Metrics) FactorInvalidation() {
	if m == nil {
		return
	}
	m.factorInvalidate.Inc()
}

// Outcome counts a calculation outcome.
func (m *Metrics) Outcome(kind, reason string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(kind, reason).Inc()
}

// Emissions adds kg CO2e for a scope label.
func (m *Metrics) Emissions(scope string, kg float64) {
	if m == nil || kg <= 0 {
		return
	}
	m.emissionsKg.WithLabelValues(scope).Add(kg)
}

// Recalculation records a finished batch.
func (m *Metrics) Recalculation(d time.Duration, created, updated, skipped, failed int) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
	m.batchItems.WithLabelValues("created").Add(float64(created))
	m.batchItems.WithLabelValues("updated").Add(float64(updated))
	m.batchItems.WithLabelValues("skipped").Add(float64(skipped))
	m.batchItems.WithLabelValues("error").Add(float64(failed))
}

// WriteTextfile writes every collector to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile %s: %w", path, err)
	}
	return nil
}
