// Package storetest holds a conformance suite run against every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/store"
)

// Factory builds a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleRecord(id, org, sourceID string, date time.Time, co2e float64) emission.Record {
	return emission.Record{
		ID:               id,
		OrganizationID:   org,
		CategoryID:       "electricity",
		EmissionFactorID: "f-elec-fr",
		Date:             date,
		Scope:            emission.Scope2,
		GHGCategory:      emission.GHGCategoryElectricity,
		Quantity:         100,
		Unit:             emission.UnitKWh,
		FactorSnapshot: emission.FactorSnapshot{
			FactorID:     "f-elec-fr",
			Name:         "Electricity FR",
			Unit:         emission.UnitKWh,
			FactorKgCO2e: 0.052,
			FactorKgCO2:  emission.Float(0.05),
			CapturedAt:   date,
		},
		CO2eKg:            co2e,
		CO2Kg:             emission.Float(co2e * 0.9),
		DataQuality:       emission.QualitySecondary,
		SourceType:        emission.SourceActivity,
		SourceID:          sourceID,
		CalculationMethod: emission.MethodActivityBased,
		Metadata:          map[string]string{"description": "office"},
		CalculatedAt:      date,
	}
}

// Run exercises every store contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("categories", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		cat := emission.Category{
			ID: "fuel", Name: "Fuel", Scope: emission.Scope1,
			GHGCategory: emission.GHGCategoryStationaryCombustion, CalculationMethod: emission.MethodActivityBased,
		}
		require.NoError(t, s.PutCategory(ctx, cat))
		require.NoError(t, s.PutCategory(ctx, emission.Category{ID: "air", Scope: emission.Scope3, Scope3Category: 6}))

		got, err := s.GetCategory(ctx, "fuel")
		require.NoError(t, err)
		assert.Equal(t, cat, *got)

		_, err = s.GetCategory(ctx, "missing")
		require.ErrorIs(t, err, emission.ErrNotFound)

		all, err := s.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "air", all[0].ID)
		assert.Equal(t, 6, all[0].Scope3Category)
	})

	t.Run("factors by canonical unit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		gas := emission.Factor{
			ID: "f1", CategoryID: "gas", Name: "Natural gas", FactorKgCO2e: 2.02,
			FactorKgCH4: emission.Float(0.003), Unit: "m³", Country: "FR", Source: "ademe",
			FuelType: "natural_gas", ValidFrom: day(2020, 1, 1), Priority: 2,
		}
		require.NoError(t, s.SaveFactor(ctx, gas))
		require.NoError(t, s.SaveFactor(ctx, emission.Factor{ID: "f2", CategoryID: "gas", FactorKgCO2e: 0.2, Unit: "kWh"}))
		require.NoError(t, s.SaveFactor(ctx, emission.Factor{ID: "f3", CategoryID: "other", FactorKgCO2e: 1, Unit: "m3"}))

		got, err := s.ListFactors(ctx, "gas", "M3")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "f1", got[0].ID)
		assert.InDelta(t, 0.003, *got[0].FactorKgCH4, 1e-12)
		assert.Nil(t, got[0].FactorKgCO2)
		assert.True(t, got[0].ValidFrom.Equal(gas.ValidFrom))
		assert.True(t, got[0].ValidUntil.IsZero())
		assert.Equal(t, 2, got[0].Priority)

		all, err := s.ListFactors(ctx, "gas", "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		gas.FactorKgCO2e = 2.5
		require.NoError(t, s.SaveFactor(ctx, gas))
		got, err = s.ListFactors(ctx, "gas", "m3")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.InDelta(t, 2.5, got[0].FactorKgCO2e, 1e-12)

		require.ErrorIs(t, s.SaveFactor(ctx, emission.Factor{ID: "x"}), emission.ErrInvalidFactor)
	})

	t.Run("sources", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutOrganization(ctx, emission.Organization{ID: "org", Name: "Acme", Country: "FR"}))
		require.NoError(t, s.PutSite(ctx, emission.Site{ID: "site", OrganizationID: "org", Country: "DE"}))
		require.NoError(t, s.PutTransaction(ctx, emission.Transaction{
			ID: "t2", OrganizationID: "org", CategoryID: "air", Date: day(2024, 2, 1),
			Amount: 120.5, Currency: "EUR", Label: "flight", Excluded: true,
		}))
		require.NoError(t, s.PutTransaction(ctx, emission.Transaction{ID: "t1", OrganizationID: "org", Date: day(2024, 1, 1), Currency: "EUR"}))
		require.NoError(t, s.PutTransaction(ctx, emission.Transaction{ID: "t9", OrganizationID: "other", Currency: "EUR"}))
		require.NoError(t, s.PutActivity(ctx, emission.Activity{
			ID: "a1", OrganizationID: "org", SiteID: "site", CategoryID: "gas", Date: day(2024, 3, 1),
			Quantity: 10, Unit: "m3", Measured: true,
		}))

		org, err := s.GetOrganization(ctx, "org")
		require.NoError(t, err)
		assert.Equal(t, "FR", org.Country)
		site, err := s.GetSite(ctx, "site")
		require.NoError(t, err)
		assert.Equal(t, "DE", site.Country)
		_, err = s.GetSite(ctx, "nope")
		require.ErrorIs(t, err, emission.ErrNotFound)
		_, err = s.GetOrganization(ctx, "nope")
		require.ErrorIs(t, err, emission.ErrNotFound)

		txs, err := s.ListTransactions(ctx, "org")
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, "t1", txs[0].ID)
		assert.True(t, txs[1].Excluded)
		assert.InDelta(t, 120.5, txs[1].Amount, 1e-12)

		acts, err := s.ListActivities(ctx, "org")
		require.NoError(t, err)
		require.Len(t, acts, 1)
		assert.True(t, acts[0].Measured)
		assert.True(t, acts[0].Date.Equal(day(2024, 3, 1)))

		require.ErrorIs(t, s.PutActivity(ctx, emission.Activity{}), emission.ErrMissingID)
	})

	t.Run("upsert is idempotent per source", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		first := sampleRecord("r1", "org", "a1", day(2024, 3, 1), 5.2)

		stored, created, err := s.UpsertRecord(ctx, first)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "r1", stored.ID)

		second := sampleRecord("r2", "org", "a1", day(2024, 3, 1), 7.5)
		second.Notes = "recalculated"
		stored, created, err = s.UpsertRecord(ctx, second)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "r1", stored.ID, "existing id is kept")

		n, err := s.CountRecords(ctx, "org")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		got, err := s.GetRecordBySource(ctx, first.Key())
		require.NoError(t, err)
		assert.Equal(t, "r1", got.ID)
		assert.InDelta(t, 7.5, got.CO2eKg, 1e-12)
		assert.Equal(t, "recalculated", got.Notes)
		require.NotNil(t, got.CO2Kg)
		assert.InDelta(t, 6.75, *got.CO2Kg, 1e-12)
		assert.Nil(t, got.CH4Kg)
		assert.Equal(t, "office", got.Metadata["description"])
		assert.Equal(t, "f-elec-fr", got.FactorSnapshot.FactorID)
		require.NotNil(t, got.FactorSnapshot.FactorKgCO2)
		assert.Equal(t, emission.Scope2, got.Scope)
		assert.Equal(t, emission.QualitySecondary, got.DataQuality)

		_, err = s.GetRecordBySource(ctx, emission.RecordKey{OrganizationID: "org", SourceType: emission.SourceTransaction, SourceID: "a1"})
		require.ErrorIs(t, err, emission.ErrNotFound)
	})

	t.Run("upsert rejects missing identity", func(t *testing.T) {
		s := newStore(t)
		r := sampleRecord("r1", "org", "", day(2024, 1, 1), 1)
		_, _, err := s.UpsertRecord(context.Background(), r)
		require.ErrorIs(t, err, emission.ErrInvalidRecord)
	})

	t.Run("list records by year", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, r := range []emission.Record{
			sampleRecord("r3", "org", "a3", day(2024, 6, 1), 3),
			sampleRecord("r1", "org", "a1", day(2023, 12, 31), 1),
			sampleRecord("r2", "org", "a2", day(2024, 1, 1), 2),
			sampleRecord("r4", "other", "a4", day(2024, 1, 1), 4),
		} {
			_, _, err := s.UpsertRecord(ctx, r)
			require.NoError(t, err)
		}

		all, err := s.ListRecords(ctx, "org", nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"r1", "r2", "r3"}, []string{all[0].ID, all[1].ID, all[2].ID})

		year := 2024
		filtered, err := s.ListRecords(ctx, "org", &year)
		require.NoError(t, err)
		require.Len(t, filtered, 2)
		assert.Equal(t, "r2", filtered[0].ID)

		none, err := s.ListRecords(ctx, "nobody", nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.ListRecords(ctx, "org", nil)
		require.ErrorIs(t, err, context.Canceled)
	})
}
