package calibration

import (
	"sync"
	"time"
)

// Retention defaults. Recency is favored over volume: effort perception
// drifts with training age, fatigue state and movement familiarity, so a
// small fresh window beats a large stale one. These are configuration
// defaults, not protocol constants.
const (
	DefaultMaxSampleAge = 28 * 24 * time.Hour
	DefaultMaxSamples   = 10
)

// SampleStore holds, per exercise, a bounded chronological window of
// observed sets serving as calibration context. AMRAP sets are stored
// alongside ordinary ones; filtering happens at estimation time.
//
// The store guards its map for concurrent access, but compound
// read-modify-write sequences for a single exercise are serialized by the
// Engine's per-exercise locking.
type SampleStore struct {
	mu         sync.RWMutex
	maxAge     time.Duration
	maxCount   int
	byExercise map[string][]SetObservation
}

// NewSampleStore creates a store with the given retention policy.
// Non-positive values fall back to the defaults.
func NewSampleStore(maxAge time.Duration, maxCount int) *SampleStore {
	if maxAge <= 0 {
		maxAge = DefaultMaxSampleAge
	}
	if maxCount <= 0 {
		maxCount = DefaultMaxSamples
	}
	return &SampleStore{
		maxAge:     maxAge,
		maxCount:   maxCount,
		byExercise: make(map[string][]SetObservation),
	}
}

// Add appends an observation to its exercise window and evicts samples
// that fall outside the retention horizon or the window cap, oldest first.
// Age is measured against the newest retained sample rather than the wall
// clock so that replaying historical logs is deterministic.
func (s *SampleStore) Add(obs SetObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	window := append(s.byExercise[obs.ExerciseID], obs)

	cutoff := window[len(window)-1].Timestamp.Add(-s.maxAge)
	start := 0
	for start < len(window)-1 && window[start].Timestamp.Before(cutoff) {
		start++
	}
	window = window[start:]

	if len(window) > s.maxCount {
		window = window[len(window)-s.maxCount:]
	}

	s.byExercise[obs.ExerciseID] = window
}

// Recent returns the exercise's window, oldest to newest. The returned
// slice is a copy; mutating it does not affect the store.
func (s *SampleStore) Recent(exerciseID string) []SetObservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	window := s.byExercise[exerciseID]
	if len(window) == 0 {
		return nil
	}
	out := make([]SetObservation, len(window))
	copy(out, window)
	return out
}

// Latest reports the newest stored timestamp for an exercise, used to
// enforce monotonic ingestion.
func (s *SampleStore) Latest(exerciseID string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	window := s.byExercise[exerciseID]
	if len(window) == 0 {
		return time.Time{}, false
	}
	return window[len(window)-1].Timestamp, true
}

// Reset drops all stored samples for an exercise.
func (s *SampleStore) Reset(exerciseID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byExercise, exerciseID)
}

// ResetAll drops every exercise's samples.
func (s *SampleStore) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byExercise = make(map[string][]SetObservation)
}
