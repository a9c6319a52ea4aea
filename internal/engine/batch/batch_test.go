package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	key string
	seq int
}

func itemKey(it item) string { return it.key }

func makeItems(n, distinctKeys int) []item {
	items := make([]item, n)
	for i := range items {
		items[i] = item{key: fmt.Sprintf("src-%d", i%distinctKeys), seq: i}
	}
	return items
}

func TestNewProcessor(t *testing.T) {
	tests := []struct {
		name      string
		batchSize int
		workers   int
		wantErr   error
	}{
		{"valid", 10, 4, nil},
		{"min values", MinBatchSize, 1, nil},
		{"zero batch", 0, 4, ErrInvalidBatchSize},
		{"huge batch", MaxBatchSize + 1, 4, ErrInvalidBatchSize},
		{"zero workers", 10, 0, ErrInvalidWorkers},
		{"too many workers", 10, MaxWorkers + 1, ErrInvalidWorkers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProcessor[item](tt.batchSize, tt.workers)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.batchSize, p.BatchSize())
			assert.Equal(t, tt.workers, p.Workers())
		})
	}

	p := NewProcessorWithDefaults[item]()
	assert.Equal(t, DefaultBatchSize, p.BatchSize())
	assert.Equal(t, DefaultWorkers, p.Workers())
}

func TestRun_ProcessesEverything(t *testing.T) {
	p, err := NewProcessor[item](7, 4)
	require.NoError(t, err)

	var count atomic.Int64
	res, err := p.Run(context.Background(), makeItems(100, 30), itemKey, func(_ context.Context, _ item) error {
		count.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Processed)
	assert.Empty(t, res.Errors)
	require.NoError(t, res.Err())
	assert.Equal(t, int64(100), count.Load())
}

func TestRun_PartitionNeverSplitsAKey(t *testing.T) {
	p, err := NewProcessor[item](3, 8)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		active  = map[string]int{}
		last    = map[string]int{}
		overlap bool
		reorder bool
	)
	_, err = p.Run(context.Background(), makeItems(400, 25), itemKey, func(_ context.Context, it item) error {
		mu.Lock()
		active[it.key]++
		if active[it.key] > 1 {
			overlap = true
		}
		if prev, ok := last[it.key]; ok && prev > it.seq {
			reorder = true
		}
		last[it.key] = it.seq
		mu.Unlock()

		time.Sleep(100 * time.Microsecond)

		mu.Lock()
		active[it.key]--
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	assert.False(t, overlap, "two workers handled the same key at once")
	assert.False(t, reorder, "items of one key ran out of order")
}

func TestPartition(t *testing.T) {
	assert.Equal(t, 0, Partition("anything", 1))
	for _, k := range []string{"a", "b", "tx-1", "act-99"} {
		p := Partition(k, 8)
		assert.GreaterOrEqual(t, p, 0)
		assert.Less(t, p, 8)
		assert.Equal(t, p, Partition(k, 8), "stable for %s", k)
	}
}

func TestRun_IsolatesErrorsAndPanics(t *testing.T) {
	p, err := NewProcessor[item](5, 3)
	require.NoError(t, err)
	boom := errors.New("boom")

	res, err := p.Run(context.Background(), makeItems(20, 20), itemKey, func(_ context.Context, it item) error {
		switch it.seq {
		case 3:
			return boom
		case 7:
			panic("kaboom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Processed)
	require.Len(t, res.Errors, 2)

	joined := res.Err()
	require.ErrorIs(t, joined, boom)
	require.ErrorIs(t, joined, ErrItemPanic)

	keys := []string{res.Errors[0].Key, res.Errors[1].Key}
	assert.ElementsMatch(t, []string{"src-3", "src-7"}, keys)
}

func TestRun_CancellationStopsNewWork(t *testing.T) {
	p, err := NewProcessor[item](1, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started atomic.Int64
	res, err := p.Run(ctx, makeItems(50, 50), itemKey, func(itemCtx context.Context, it item) error {
		started.Add(1)
		if it.seq == 4 {
			cancel()
		}
		return itemCtx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, res.Processed, "in-flight item completes, no new items start")
	assert.Equal(t, int64(5), started.Load())
	assert.Empty(t, res.Errors, "the item running at cancellation is not interrupted")
}

func TestRun_ProgressCallback(t *testing.T) {
	var (
		mu    sync.Mutex
		snaps []ProgressSnapshot
	)
	p, err := NewProcessor[item](10, 1)
	require.NoError(t, err)
	p.WithProgressCallback(func(s ProgressSnapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	_, err = p.Run(context.Background(), makeItems(25, 5), itemKey, func(_ context.Context, it item) error {
		if it.seq == 0 {
			return errors.New("bad")
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, snaps, 3)
	final := snaps[len(snaps)-1]
	assert.True(t, final.IsComplete())
	assert.Equal(t, 25, final.ProcessedItems)
	assert.Equal(t, 1, final.FailedItems)
	assert.InDelta(t, 100.0, final.PercentComplete, 1e-9)
	assert.Equal(t, time.Duration(0), final.EstimatedTimeRemaining())
}

func TestRun_EmptyAndNil(t *testing.T) {
	p := NewProcessorWithDefaults[item]()

	res, err := p.Run(context.Background(), nil, itemKey, func(context.Context, item) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, res.Processed)

	_, err = p.Run(context.Background(), makeItems(1, 1), itemKey, nil)
	require.ErrorIs(t, err, ErrNilCallback)
}
