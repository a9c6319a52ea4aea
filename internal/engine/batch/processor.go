package batch

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Default and limit values for a Processor.
const (
	DefaultBatchSize = 100
	MinBatchSize     = 1
	MaxBatchSize     = 1000
	DefaultWorkers   = 4
	MaxWorkers       = 64
)

// Common batch processing errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be between 1 and 1000")
	ErrInvalidWorkers   = errors.New("workers must be between 1 and 64")
	ErrNilCallback      = errors.New("batch callback cannot be nil")
	ErrItemPanic        = errors.New("item panicked")
)

// ItemFunc handles one item. A returned error is recorded and does not stop
// other items.
type ItemFunc[T any] func(ctx context.Context, item T) error

// KeyFunc returns the partition key of an item.
type KeyFunc[T any] func(item T) string

// ProgressCallback is invoked after each chunk completes. It may be called
// from several workers concurrently.
type ProgressCallback func(progress ProgressSnapshot)

// ItemError records the failure of a single item.
type ItemError struct {
	Key string
	Err error
}

func (e ItemError) Error() string { return fmt.Sprintf("item %s: %v", e.Key, e.Err) }

func (e ItemError) Unwrap() error { return e.Err }

// Result summarizes a Run.
type Result struct {
	// Processed counts items whose ItemFunc ran to completion or failed.
	Processed int
	// Errors holds one entry per failed item.
	Errors []ItemError
}

// Err joins every item error, or returns nil.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Processor runs items across partitioned workers.
type Processor[T any] struct {
	batchSize  int
	workers    int
	onProgress ProgressCallback
}

// NewProcessor validates the sizes and returns a Processor.
func NewProcessor[T any](batchSize, workers int) (*Processor[T], error) {
	if batchSize < MinBatchSize || batchSize > MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	if workers < 1 || workers > MaxWorkers {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, workers)
	}
	return &Processor[T]{batchSize: batchSize, workers: workers}, nil
}

// NewProcessorWithDefaults returns a processor using the default sizes.
func NewProcessorWithDefaults[T any]() *Processor[T] {
	return &Processor[T]{batchSize: DefaultBatchSize, workers: DefaultWorkers}
}

// WithProgressCallback sets a progress callback for the processor.
func (p *Processor[T]) WithProgressCallback(callback ProgressCallback) *Processor[T] {
	p.onProgress = callback
	return p
}

// BatchSize returns the configured chunk size.
func (p *Processor[T]) BatchSize() int { return p.batchSize }

// Workers returns the configured worker count.
func (p *Processor[T]) Workers() int { return p.workers }

// Partition returns the worker index that owns key.
func Partition(key string, workers int) int {
	if workers <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(workers)) //nolint:gosec // workers is bounded by MaxWorkers.
}

// Run processes every item. It returns the result together with ctx.Err()
// when the context was cancelled before all items started.
func (p *Processor[T]) Run(ctx context.Context, items []T, key KeyFunc[T], fn ItemFunc[T]) (Result, error) {
	if fn == nil || key == nil {
		return Result{}, ErrNilCallback
	}
	if len(items) == 0 {
		return Result{}, ctx.Err()
	}

	partitions := make([][]T, p.workers)
	keys := make([][]string, p.workers)
	for _, item := range items {
		k := key(item)
		idx := Partition(k, p.workers)
		partitions[idx] = append(partitions[idx], item)
		keys[idx] = append(keys[idx], k)
	}

	// Items that start run to completion; ctx only gates starting the next one.
	itemCtx := context.WithoutCancel(ctx)
	progress := NewProgress(len(items), p.batchSize)
	var (
		mu     sync.Mutex
		result Result
	)

	// Workers never return an error so one partition cannot cancel another.
	var g errgroup.Group
	for w := range p.workers {
		part, partKeys := partitions[w], keys[w]
		if len(part) == 0 {
			continue
		}
		g.Go(func() error {
			for start := 0; start < len(part); start += p.batchSize {
				end := min(start+p.batchSize, len(part))
				var chunkErrs []ItemError
				done := 0
				for i := start; i < end; i++ {
					if ctx.Err() != nil {
						break
					}
					if err := safeCall(itemCtx, fn, part[i]); err != nil {
						chunkErrs = append(chunkErrs, ItemError{Key: partKeys[i], Err: err})
					}
					done++
				}

				mu.Lock()
				result.Processed += done
				result.Errors = append(result.Errors, chunkErrs...)
				mu.Unlock()

				progress.Add(done, len(chunkErrs))
				if p.onProgress != nil && done > 0 {
					p.onProgress(progress.Snapshot())
				}
				if ctx.Err() != nil {
					return nil
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	if result.Processed < len(items) {
		return result, ctx.Err()
	}
	return result, nil
}

func safeCall[T any](ctx context.Context, fn ItemFunc[T], item T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrItemPanic, r, debug.Stack())
		}
	}()
	return fn(ctx, item)
}
