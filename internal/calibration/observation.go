package calibration

import (
	"errors"
	"fmt"
	"time"
)

// ErrOutOfOrder is returned when an observation's timestamp is earlier
// than the latest one already recorded for the same exercise. The engine
// ingests in chronological order only; callers must sort before submitting.
var ErrOutOfOrder = errors.New("observation out of chronological order")

// RepTarget is the prescribed rep range for a set. Max nil means the
// prescription was open-ended (an AMRAP target like "8+").
type RepTarget struct {
	Min int  `json:"min"`
	Max *int `json:"max,omitempty"`
}

// SetObservation is one completed working set offered to the engine.
// Samples are partitioned strictly by exercise.
type SetObservation struct {
	ExerciseID   string    `json:"exercise_id"`
	ExerciseName string    `json:"exercise_name"`
	WeightKg     float64   `json:"weight_kg"`
	Prescribed   RepTarget `json:"prescribed_reps"`
	ActualReps   int       `json:"actual_reps"`
	ReportedRIR  int       `json:"reported_rir"`
	WasAMRAP     bool      `json:"was_amrap"`
	Timestamp    time.Time `json:"timestamp"`
}

// Validate checks the observation at the boundary. Nothing is mutated on
// failure; the caller must fix and resubmit.
func (o SetObservation) Validate() error {
	if o.ExerciseID == "" {
		return fmt.Errorf("exercise_id is required")
	}
	if o.WeightKg < 0 {
		return fmt.Errorf("weight_kg must not be negative, got %g", o.WeightKg)
	}
	if o.ActualReps < 0 {
		return fmt.Errorf("actual_reps must not be negative, got %d", o.ActualReps)
	}
	if o.ReportedRIR < 0 {
		return fmt.Errorf("reported_rir must not be negative, got %d", o.ReportedRIR)
	}
	if o.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}
