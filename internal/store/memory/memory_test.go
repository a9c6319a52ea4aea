package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/store"
	"github.com/rshade/carbonfocus/internal/store/memory"
	"github.com/rshade/carbonfocus/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		return memory.New()
	})
}

func TestReturnedRecordsAreDetached(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	r := emission.Record{
		ID: "r1", OrganizationID: "org", SourceType: emission.SourceActivity, SourceID: "a1",
		CO2Kg: emission.Float(1), Metadata: map[string]string{"k": "v"},
	}
	_, _, err := s.UpsertRecord(ctx, r)
	require.NoError(t, err)

	got, err := s.GetRecordBySource(ctx, r.Key())
	require.NoError(t, err)
	*got.CO2Kg = 99
	got.Metadata["k"] = "changed"

	again, err := s.GetRecordBySource(ctx, r.Key())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, *again.CO2Kg, 1e-12)
	assert.Equal(t, "v", again.Metadata["k"])
}

func TestConcurrentUpserts(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _ = s.UpsertRecord(ctx, emission.Record{
				ID: "r", OrganizationID: "org", SourceType: emission.SourceTransaction, SourceID: "t1",
				Date: time.Now(), CO2eKg: float64(i),
			})
		}(i)
	}
	wg.Wait()

	n, err := s.CountRecords(ctx, "org")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
