package calibration

import (
	"sort"
	"sync"
	"time"
)

// Confidence tier defaults: three data points is the minimum to tell noise
// from trend; six is roughly one failure set per week over a mesocycle.
const (
	DefaultMediumConfidenceAt = 3
	DefaultHighConfidenceAt   = 6
)

type biasPoint struct {
	bias float64
	at   time.Time
}

type exerciseCalibration struct {
	name       string
	points     []biasPoint
	dataPoints int // cumulative folds, survives window eviction
	last       CalibrationResult
}

// Aggregator folds successive bias observations per exercise into a
// running calibration: smoothed bias, confidence tier and interpretation.
// A single AMRAP is a noisy signal (form breakdown, motivation,
// unfamiliarity with true failure), so raw biases are never used directly.
type Aggregator struct {
	mu       sync.Mutex
	maxAge   time.Duration
	maxCount int
	mediumAt int
	highAt   int
	state    map[string]*exerciseCalibration
}

// NewAggregator creates an aggregator whose bias window follows the same
// retention policy as the sample store. Non-positive arguments fall back
// to the defaults.
func NewAggregator(maxAge time.Duration, maxCount, mediumAt, highAt int) *Aggregator {
	if maxAge <= 0 {
		maxAge = DefaultMaxSampleAge
	}
	if maxCount <= 0 {
		maxCount = DefaultMaxSamples
	}
	if mediumAt <= 0 {
		mediumAt = DefaultMediumConfidenceAt
	}
	if highAt <= mediumAt {
		highAt = DefaultHighConfidenceAt
	}
	return &Aggregator{
		maxAge:   maxAge,
		maxCount: maxCount,
		mediumAt: mediumAt,
		highAt:   highAt,
		state:    make(map[string]*exerciseCalibration),
	}
}

// Fold absorbs one bias observation and returns the updated calibration.
// The result reflects the smoothed state after the fold — the caller
// always sees the current best estimate, not the last delta. The smoothed
// bias is the arithmetic mean of the retained window; a simple mean keeps
// the correction auditable ("your average measured bias across N
// failure sets is X reps").
func (a *Aggregator) Fold(exerciseID, exerciseName string, predicted float64, actual int, bias float64, at time.Time) CalibrationResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	ec := a.state[exerciseID]
	if ec == nil {
		ec = &exerciseCalibration{name: exerciseName}
		a.state[exerciseID] = ec
	}
	if exerciseName != "" {
		ec.name = exerciseName
	}

	ec.points = append(ec.points, biasPoint{bias: bias, at: at})
	ec.dataPoints++

	cutoff := at.Add(-a.maxAge)
	start := 0
	for start < len(ec.points)-1 && ec.points[start].at.Before(cutoff) {
		start++
	}
	ec.points = ec.points[start:]
	if len(ec.points) > a.maxCount {
		ec.points = ec.points[len(ec.points)-a.maxCount:]
	}

	var sum float64
	for _, p := range ec.points {
		sum += p.bias
	}
	smoothed := sum / float64(len(ec.points))

	ec.last = CalibrationResult{
		ExerciseID:         exerciseID,
		ExerciseName:       ec.name,
		PredictedMaxReps:   predicted,
		ActualMaxReps:      actual,
		Bias:               bias,
		SmoothedBias:       smoothed,
		BiasInterpretation: interpretBias(smoothed),
		ConfidenceLevel:    a.confidence(ec.dataPoints),
		LastCalibrated:     at,
		DataPoints:         ec.dataPoints,
	}
	return ec.last
}

func (a *Aggregator) confidence(dataPoints int) Confidence {
	switch {
	case dataPoints >= a.highAt:
		return ConfidenceHigh
	case dataPoints >= a.mediumAt:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Current returns the latest calibration for an exercise, if any.
func (a *Aggregator) Current(exerciseID string) (CalibrationResult, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ec := a.state[exerciseID]
	if ec == nil || ec.dataPoints == 0 {
		return CalibrationResult{}, false
	}
	return ec.last, true
}

// Snapshot returns the latest calibration for every exercise, sorted by
// exercise ID for stable output.
func (a *Aggregator) Snapshot() []CalibrationResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]CalibrationResult, 0, len(a.state))
	for _, ec := range a.state {
		if ec.dataPoints > 0 {
			out = append(out, ec.last)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExerciseID < out[j].ExerciseID })
	return out
}

// Reset clears the calibration state for an exercise.
func (a *Aggregator) Reset(exerciseID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.state, exerciseID)
}

// ResetAll clears every exercise's calibration state.
func (a *Aggregator) ResetAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = make(map[string]*exerciseCalibration)
}
