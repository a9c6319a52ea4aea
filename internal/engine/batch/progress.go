package batch

import (
	"sync"
	"time"
)

// percentMultiplier is used to convert a ratio to percentage (0-100).
const percentMultiplier = 100

// Progress tracks a Run. Safe for concurrent use.
type Progress struct {
	mu             sync.RWMutex
	totalItems     int
	processedItems int
	failedItems    int
	chunks         int
	batchSize      int
	startTime      time.Time
	lastUpdateTime time.Time
}

// NewProgress creates a progress tracker for totalItems.
func NewProgress(totalItems, batchSize int) *Progress {
	now := time.Now()
	return &Progress{
		totalItems:     totalItems,
		batchSize:      batchSize,
		startTime:      now,
		lastUpdateTime: now,
	}
}

// Add records a finished chunk.
func (p *Progress) Add(processed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processedItems += processed
	p.failedItems += failed
	p.chunks++
	p.lastUpdateTime = time.Now()
}

// Snapshot returns a copy of the current state.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	elapsed := time.Since(p.startTime)
	snap := ProgressSnapshot{
		TotalItems:     p.totalItems,
		ProcessedItems: p.processedItems,
		FailedItems:    p.failedItems,
		Chunks:         p.chunks,
		BatchSize:      p.batchSize,
		StartTime:      p.startTime,
		LastUpdateTime: p.lastUpdateTime,
		ElapsedTime:    elapsed,
	}
	if p.totalItems > 0 {
		snap.PercentComplete = float64(p.processedItems) / float64(p.totalItems) * percentMultiplier
	}
	if secs := elapsed.Seconds(); secs > 0 {
		snap.ItemsPerSecond = float64(p.processedItems) / secs
	}
	return snap
}

// ProgressSnapshot is an immutable snapshot of progress state.
type ProgressSnapshot struct {
	TotalItems      int
	ProcessedItems  int
	FailedItems     int
	Chunks          int
	BatchSize       int
	StartTime       time.Time
	LastUpdateTime  time.Time
	PercentComplete float64
	ElapsedTime     time.Duration
	ItemsPerSecond  float64
}

// IsComplete reports whether every item has been handled.
func (s ProgressSnapshot) IsComplete() bool {
	return s.ProcessedItems >= s.TotalItems
}

// EstimatedTimeRemaining extrapolates from the current rate. 0 before the
// first chunk finishes.
func (s ProgressSnapshot) EstimatedTimeRemaining() time.Duration {
	if s.ProcessedItems == 0 {
		return 0
	}
	perItem := s.ElapsedTime / time.Duration(s.ProcessedItems)
	return perItem * time.Duration(s.TotalItems-s.ProcessedItems)
}
