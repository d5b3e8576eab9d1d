package compress

import (
	"sync"
	"sync/atomic"
)

// SourceImage is one raw upload: the bytes as received plus the name the
// uploader gave the file. The engine never mutates Data.
type SourceImage struct {
	Name string
	Data []byte
}

// Target describes the byte-size envelope every image in a batch should be
// squeezed into.
type Target struct {
	TargetBytes    int64   `json:"target_bytes"`
	ToleranceBytes int64   `json:"tolerance_bytes"` // 0 means 5% of TargetBytes
	MinQuality     int     `json:"min_quality"`     // 0 means 30
	MinScale       float64 `json:"min_scale"`       // 0 means 0.25
}

const (
	// targetFloor is the smallest acceptable lower band edge. Budgets below
	// this are unsatisfiable for any real photograph.
	targetFloor = 1024

	defaultMinQuality = 30
	defaultMinScale   = 0.25
)

// withDefaults fills zero fields and clamps the tolerance so the band keeps a
// sane floor.
func (t Target) withDefaults() Target {
	if t.ToleranceBytes == 0 {
		t.ToleranceBytes = t.TargetBytes / 20
	}
	if t.MinQuality == 0 {
		t.MinQuality = defaultMinQuality
	}
	if t.MinQuality < 1 {
		t.MinQuality = 1
	}
	if t.MinQuality > 100 {
		t.MinQuality = 100
	}
	if t.MinScale <= 0 {
		t.MinScale = defaultMinScale
	}
	if t.MinScale > 1 {
		t.MinScale = 1
	}
	if t.TargetBytes-t.ToleranceBytes < targetFloor {
		t.ToleranceBytes = t.TargetBytes - targetFloor
		if t.ToleranceBytes < 0 {
			t.ToleranceBytes = 0
		}
	}
	return t
}

// Validate reports whether the target can drive a search at all.
func (t Target) Validate() error {
	if t.TargetBytes < targetFloor {
		return ErrTargetTooSmall
	}
	return nil
}

// lowerBand returns the bottom of the tolerance band.
func (t Target) lowerBand() int64 { return t.TargetBytes - t.ToleranceBytes }

// Result is the outcome of compressing one source image. Data is owned by the
// caller once the result has been emitted.
type Result struct {
	Name            string
	Data            []byte
	AchievedBytes   int64
	Quality         int     // 0 when the original bytes were kept
	Scale           float64 // 1.0 when the original bytes were kept
	SatisfiedTarget bool
	Untouched       bool // original bytes returned as-is
	EncodeCalls     int
}

// Failure records one item that could not be processed. The batch carries on.
type Failure struct {
	Index  int
	Name   string
	Reason error
}

// BatchState is the only mutable state shared across workers. Failure appends
// are serialized behind the mutex; the raster counters are atomics so workers
// never contend on them.
type BatchState struct {
	mu        sync.Mutex
	failures  []Failure
	processed int
	truncated bool

	rastersInFlight atomic.Int64
	rastersPeak     atomic.Int64
	inputBytes      atomic.Int64
}

func (s *BatchState) recordFailure(f Failure) {
	s.mu.Lock()
	s.failures = append(s.failures, f)
	s.mu.Unlock()
}

func (s *BatchState) recordProcessed() {
	s.mu.Lock()
	s.processed++
	s.mu.Unlock()
}

func (s *BatchState) markTruncated() {
	s.mu.Lock()
	s.truncated = true
	s.mu.Unlock()
}

// rasterAcquired bumps the in-flight raster count and keeps the high-water
// mark current.
func (s *BatchState) rasterAcquired() {
	n := s.rastersInFlight.Add(1)
	for {
		peak := s.rastersPeak.Load()
		if n <= peak || s.rastersPeak.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (s *BatchState) rasterReleased() {
	s.rastersInFlight.Add(-1)
}

func (s *BatchState) recordInput(n int64) {
	s.inputBytes.Add(n)
}

// InputBytes returns the total size of the items the batch accepted for
// processing. Input dropped at the ceiling is not counted.
func (s *BatchState) InputBytes() int64 {
	return s.inputBytes.Load()
}

// Failures returns the per-item failures in the order they were recorded.
func (s *BatchState) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Failure, len(s.failures))
	copy(out, s.failures)
	return out
}

// Processed returns how many items finished, successfully or not.
func (s *BatchState) Processed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed
}

// Truncated reports whether the input held more items than the batch ceiling
// allowed.
func (s *BatchState) Truncated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.truncated
}

// PeakRasters returns the highest number of decoded rasters that were ever
// resident at the same time.
func (s *BatchState) PeakRasters() int {
	return int(s.rastersPeak.Load())
}
