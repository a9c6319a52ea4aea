package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/scope"
)

const tolerance = 1e-9

func TestLinearity(t *testing.T) {
	f := emission.Factor{
		ID: "f", Unit: "kWh", FactorKgCO2e: 0.052,
		FactorKgCO2: emission.Float(0.05), FactorKgCH4: emission.Float(0.001),
	}
	quantities := []float64{0, 1, 50000, -120.5, 1e-6, 1e9}

	for _, calc := range scope.DefaultRegistry() {
		for _, q := range quantities {
			b := calc.Calculate(q, f, nil)
			assert.InDelta(t, q*f.FactorKgCO2e, b.CO2eKg, tolerance*max(1, q), "%s q=%v", calc.Scope(), q)
			require.NotNil(t, b.CO2Kg)
			assert.InDelta(t, q*0.05, *b.CO2Kg, tolerance*max(1, q))
			require.NotNil(t, b.CH4Kg)
			assert.InDelta(t, q*0.001, *b.CH4Kg, tolerance*max(1, q))
			assert.Nil(t, b.N2OKg, "absent sub-factor is omitted")
		}
	}
}

func TestFrenchGridScenario(t *testing.T) {
	f := emission.Factor{ID: "fr-grid", Unit: "kWh", Country: "FR", FactorKgCO2e: 0.052, Source: "ademe"}
	b := scope.Scope2{}.Calculate(50000, f, nil)
	assert.InDelta(t, 2600.0, b.CO2eKg, tolerance)
	assert.False(t, b.IsEstimated)
}

func TestNegativeQuantityPropagates(t *testing.T) {
	f := emission.Factor{Unit: "EUR", FactorKgCO2e: 0.4}
	b := scope.Scope3{}.Calculate(-250, f, nil)
	assert.InDelta(t, -100.0, b.CO2eKg, tolerance)
}

func TestUnknownUnitIsNoted(t *testing.T) {
	f := emission.Factor{Unit: "pallets", FactorKgCO2e: 3}
	b := scope.Scope1{}.Calculate(2, f, nil)
	assert.InDelta(t, 6.0, b.CO2eKg, tolerance)
	assert.Contains(t, b.Notes, `unit "pallets" not recognized`)

	known := scope.Scope1{}.Calculate(2, emission.Factor{Unit: "m³", FactorKgCO2e: 3}, nil)
	assert.Empty(t, known.Notes)
}

func TestScope1FuelNotes(t *testing.T) {
	tests := []struct {
		name   string
		factor emission.Factor
		ctx    scope.Context
		want   string
	}{
		{"explicit tag", emission.Factor{Name: "Fleet fuel", FuelType: "diesel", Unit: "L"}, nil, "fuel: diesel"},
		{"tag beats name", emission.Factor{Name: "Essence SP95", FuelType: "biofuel", Unit: "L"}, nil, "fuel: biofuel"},
		{"legacy gazole", emission.Factor{Name: "Gazole routier", Unit: "L"}, nil, "fuel: diesel"},
		{"legacy essence", emission.Factor{Name: "Essence SP95", Unit: "L"}, nil, "fuel: gasoline"},
		{"legacy gaz naturel", emission.Factor{Name: "Gaz naturel réseau", Unit: "kWh"}, nil, "fuel: natural_gas"},
		{"legacy fioul", emission.Factor{Name: "Fioul domestique", Unit: "L"}, nil, "fuel: fuel_oil"},
		{"legacy gpl", emission.Factor{Name: "GPL carburant", Unit: "L"}, nil, "fuel: lpg"},
		{"context override", emission.Factor{Name: "Diesel", Unit: "L"}, scope.Context{scope.KeyFuelType: "hvo"}, "fuel: hvo"},
		{"none", emission.Factor{Name: "Refrigerant leak", Unit: "kg"}, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := scope.Scope1{}.Calculate(1, tt.factor, tt.ctx)
			assert.Equal(t, tt.want, b.Notes)
		})
	}
}

func TestScope2Methodology(t *testing.T) {
	tests := []struct {
		name   string
		factor emission.Factor
		ctx    scope.Context
		want   string
	}{
		{"grid average", emission.Factor{Source: "ademe"}, nil, scope.MethodologyLocationBased},
		{"supplier contract", emission.Factor{Source: "supplier_specific"}, nil, scope.MethodologyMarketBased},
		{"residual mix", emission.Factor{Source: "AIB_residual_mix"}, nil, scope.MethodologyMarketBased},
		{"context wins", emission.Factor{Source: "ademe"}, scope.Context{scope.KeyMethodology: scope.MethodologyMarketBased}, scope.MethodologyMarketBased},
		{"bad context ignored", emission.Factor{Source: "ademe"}, scope.Context{scope.KeyMethodology: "vibes"}, scope.MethodologyLocationBased},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scope.Methodology(tt.factor, tt.ctx))
		})
	}

	b := scope.Scope2{}.Calculate(10, emission.Factor{Unit: "kWh", FactorKgCO2e: 0.1}, nil)
	assert.Equal(t, "methodology: location_based", b.Notes)
	assert.InDelta(t, 1.0, b.CO2eKg, tolerance, "methodology never changes the number")
}

func TestScope3SpendBased(t *testing.T) {
	spend := scope.Scope3{}.Calculate(1000, emission.Factor{Unit: "EUR", FactorKgCO2e: 0.25}, scope.Context{scope.KeyScope3Category: "6"})
	assert.InDelta(t, 250.0, spend.CO2eKg, tolerance)
	assert.True(t, spend.IsEstimated)
	assert.Equal(t, "scope 3 category 6; spend-based estimate", spend.Notes)

	physical := scope.Scope3{}.Calculate(100, emission.Factor{Unit: "km", FactorKgCO2e: 0.2}, nil)
	assert.False(t, physical.IsEstimated)
	assert.Empty(t, physical.Notes)
}

func TestRegistry(t *testing.T) {
	reg := scope.DefaultRegistry()
	for _, s := range []emission.Scope{emission.Scope1, emission.Scope2, emission.Scope3} {
		c, ok := reg.Lookup(s)
		require.True(t, ok)
		assert.Equal(t, s, c.Scope())
	}
	_, ok := reg.Lookup(emission.Scope(4))
	assert.False(t, ok)
}
