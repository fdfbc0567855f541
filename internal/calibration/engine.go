// Package calibration implements the effort-calibration engine: a
// sequential per-exercise model that learns the gap between a trainee's
// self-reported proximity to failure (RIR) and their actual proximity,
// measured on sets taken to true failure. The learned bias corrects
// future effort prescriptions so a nominal "2 reps in reserve" actually
// produces 2 reps in reserve for that person on that exercise.
package calibration

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Config holds the engine's tunable parameters. Zero values select the
// package defaults.
type Config struct {
	// MaxSampleAge is the retention horizon for observed sets and bias
	// samples.
	MaxSampleAge time.Duration
	// MaxSamples caps each per-exercise window.
	MaxSamples int
	// MediumConfidenceAt and HighConfidenceAt are the data-point counts
	// at which confidence tiers are reached.
	MediumConfidenceAt int
	HighConfidenceAt   int
}

// Engine is the calibration façade. It orchestrates the sample store, the
// bias estimator and the aggregator, and is the single ingestion entry
// point for both historical replay and live sets, guaranteeing identical
// semantics for the two.
//
// Operations on one exercise are serialized through a per-exercise lock;
// distinct exercises share no state and proceed concurrently. The engine
// performs no I/O: loading history and persisting emitted results are the
// caller's responsibility.
type Engine struct {
	samples    *SampleStore
	aggregator *Aggregator
	log        *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		samples:    NewSampleStore(cfg.MaxSampleAge, cfg.MaxSamples),
		aggregator: NewAggregator(cfg.MaxSampleAge, cfg.MaxSamples, cfg.MediumConfidenceAt, cfg.HighConfidenceAt),
		log:        log,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (e *Engine) exerciseLock(exerciseID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.locks[exerciseID]
	if l == nil {
		l = &sync.Mutex{}
		e.locks[exerciseID] = l
	}
	return l
}

// RecordSet ingests one completed working set. The observation is always
// stored as future context; if it was an AMRAP (true volitional failure)
// a calibration is attempted against the exercise's prior non-AMRAP
// samples and the updated calibration is returned. A nil result with a
// nil error means no calibration event occurred: either the set was not
// an AMRAP, or there was no prior context to compare against.
//
// Timestamps must be monotonic per exercise; an observation older than
// the latest stored one is rejected with ErrOutOfOrder and nothing is
// mutated. The engine does not re-sort internally — ingestion stays O(1)
// and order-sensitive so the estimator can assume causal ordering.
func (e *Engine) RecordSet(obs SetObservation) (*CalibrationResult, error) {
	if err := obs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observation: %w", err)
	}

	lock := e.exerciseLock(obs.ExerciseID)
	lock.Lock()
	defer lock.Unlock()

	if latest, ok := e.samples.Latest(obs.ExerciseID); ok && obs.Timestamp.Before(latest) {
		return nil, fmt.Errorf("%w: %s at %s is before latest %s",
			ErrOutOfOrder, obs.ExerciseID, obs.Timestamp.Format(time.RFC3339), latest.Format(time.RFC3339))
	}

	prior := e.samples.Recent(obs.ExerciseID)
	e.samples.Add(obs)

	if !obs.WasAMRAP {
		return nil, nil
	}

	predicted, bias, ok := EstimateBias(obs, prior)
	if !ok {
		// Insufficient context is a no-result outcome, not an error;
		// the AMRAP itself is kept for future use.
		e.log.Debug("amrap without prior context", "exercise", obs.ExerciseID)
		return nil, nil
	}

	result := e.aggregator.Fold(obs.ExerciseID, obs.ExerciseName, predicted, obs.ActualReps, bias, obs.Timestamp)
	e.log.Info("calibration updated",
		"exercise", obs.ExerciseID,
		"predicted_max", result.PredictedMaxReps,
		"actual_max", result.ActualMaxReps,
		"bias", result.Bias,
		"smoothed_bias", result.SmoothedBias,
		"confidence", result.ConfidenceLevel,
		"data_points", result.DataPoints,
	)
	return &result, nil
}

// AdjustedTarget resolves the RIR that should actually be prescribed for
// a nominal target. Below medium confidence the nominal value passes
// through unchanged — an unreliable signal is never acted on. Otherwise
// the smoothed bias is subtracted and the result rounded and clamped at
// zero: a trainee who leaves more in reserve than reported is pushed
// closer next time, one who over-reaches is pulled back.
func (e *Engine) AdjustedTarget(exerciseID string, nominalRIR int) (TargetAdjustment, error) {
	if exerciseID == "" {
		return TargetAdjustment{}, fmt.Errorf("exercise_id is required")
	}
	if nominalRIR < 0 {
		return TargetAdjustment{}, fmt.Errorf("nominal_rir must not be negative, got %d", nominalRIR)
	}

	lock := e.exerciseLock(exerciseID)
	lock.Lock()
	defer lock.Unlock()

	adj := TargetAdjustment{
		ExerciseID:    exerciseID,
		NominalRIR:    nominalRIR,
		PrescribedRIR: nominalRIR,
	}

	current, ok := e.aggregator.Current(exerciseID)
	if !ok {
		return adj, nil
	}
	adj.ConfidenceLevel = current.ConfidenceLevel
	adj.SmoothedBias = current.SmoothedBias
	if current.ConfidenceLevel == ConfidenceLow {
		return adj, nil
	}

	prescribed := int(math.Round(float64(nominalRIR) - current.SmoothedBias))
	if prescribed < 0 {
		prescribed = 0
	}
	adj.PrescribedRIR = prescribed
	adj.HasAdjustment = prescribed != nominalRIR
	return adj, nil
}

// Calibration returns the current calibration for an exercise, if one
// exists.
func (e *Engine) Calibration(exerciseID string) (CalibrationResult, bool) {
	return e.aggregator.Current(exerciseID)
}

// Calibrations returns the current calibration of every exercise.
func (e *Engine) Calibrations() []CalibrationResult {
	return e.aggregator.Snapshot()
}

// Reset clears stored samples and calibration state for an exercise.
// Intended for when prior calibration is no longer valid (new equipment,
// long layoff); the caller decides when.
func (e *Engine) Reset(exerciseID string) {
	lock := e.exerciseLock(exerciseID)
	lock.Lock()
	defer lock.Unlock()

	e.samples.Reset(exerciseID)
	e.aggregator.Reset(exerciseID)
	e.log.Info("calibration reset", "exercise", exerciseID)
}

// ResetAll clears all state for every exercise. Lock identity is
// preserved: every existing per-exercise lock is acquired before state is
// dropped, so in-flight operations finish first and concurrent callers
// keep serializing on the same mutex afterwards. An exercise first seen
// while the reset is running may land on either side of it.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	locks := make([]*sync.Mutex, 0, len(e.locks))
	for _, l := range e.locks {
		locks = append(locks, l)
	}
	e.mu.Unlock()

	for _, l := range locks {
		l.Lock()
	}
	e.samples.ResetAll()
	e.aggregator.ResetAll()
	for _, l := range locks {
		l.Unlock()
	}
	e.log.Info("calibration reset", "exercise", "all")
}

// LatestTimestamp reports the newest observation recorded for an
// exercise. Callers that persist sets before handing them to the engine
// can reject stale submissions up front instead of storing a row the
// engine will refuse.
func (e *Engine) LatestTimestamp(exerciseID string) (time.Time, bool) {
	return e.samples.Latest(exerciseID)
}

// SetSource supplies historical observations for replay, chronologically
// sorted and restricted to completed, non-warm-up working sets.
type SetSource interface {
	ReplaySets(ctx context.Context, userID int) ([]SetObservation, error)
}

// Replay feeds persisted history through RecordSet, rebuilding the
// engine's in-memory state at startup. Out-of-order or invalid rows are
// skipped with a warning rather than aborting the replay.
func (e *Engine) Replay(ctx context.Context, src SetSource, userID int) (sets, calibrations int, err error) {
	observations, err := src.ReplaySets(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("loading replay sets: %w", err)
	}

	for _, obs := range observations {
		result, err := e.RecordSet(obs)
		if err != nil {
			e.log.Warn("replay skipped observation", "exercise", obs.ExerciseID, "error", err)
			continue
		}
		sets++
		if result != nil {
			calibrations++
		}
	}
	return sets, calibrations, nil
}
