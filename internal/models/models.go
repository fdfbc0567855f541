package models

import (
	"time"

	"github.com/google/uuid"
)

// SetRow is a row ready for insertion into the training_sets table. One
// row per completed working set (warm-ups included, flagged).
type SetRow struct {
	UserID        int
	SessionName   string
	SessionDate   time.Time
	ExerciseID    string
	ExerciseName  string
	Equipment     string
	TargetRepsMin int
	TargetRepsMax *int // nil for open-ended ("8+") prescriptions
	IsWarmup      bool
	SetNumber     int
	WeightKg      float64
	Reps          int
	RIR           int
	WasAMRAP      bool
	PerformedAt   time.Time
}

// CalibrationRow is a row for the calibration_events table, one per
// emitted calibration result.
type CalibrationRow struct {
	ID               uuid.UUID
	UserID           int
	ExerciseID       string
	ExerciseName     string
	PredictedMaxReps float64
	ActualMaxReps    int
	Bias             float64
	SmoothedBias     float64
	Interpretation   string
	Confidence       string
	DataPoints       int
	CalibratedAt     time.Time
}
