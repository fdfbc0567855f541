package calibration

import "time"

// Confidence qualifies how much accumulated failure-set data backs a
// calibration.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Bias interpretation labels. These describe calibration direction, not a
// value judgment; presentation is up to the caller.
const (
	InterpretationAccurate      = "accurate"
	InterpretationUnderReported = "leaves more in reserve than reported"
	InterpretationOverReported  = "pushes closer to failure than reported"
)

// interpretBias maps a smoothed bias to its label. Within one rep of the
// prediction the trainee is considered accurate.
func interpretBias(bias float64) string {
	switch {
	case bias >= 1:
		return InterpretationUnderReported
	case bias <= -1:
		return InterpretationOverReported
	default:
		return InterpretationAccurate
	}
}

// CalibrationResult is the output of one successful calibration event.
// PredictedMaxReps, ActualMaxReps and Bias describe the triggering AMRAP
// set; SmoothedBias, BiasInterpretation and ConfidenceLevel reflect the
// updated per-exercise running state, which is always the current best
// estimate rather than the last delta.
type CalibrationResult struct {
	ExerciseID         string     `json:"exercise_id"`
	ExerciseName       string     `json:"exercise_name"`
	PredictedMaxReps   float64    `json:"predicted_max_reps"`
	ActualMaxReps      int        `json:"actual_max_reps"`
	Bias               float64    `json:"bias"`
	SmoothedBias       float64    `json:"smoothed_bias"`
	BiasInterpretation string     `json:"bias_interpretation"`
	ConfidenceLevel    Confidence `json:"confidence_level"`
	LastCalibrated     time.Time  `json:"last_calibrated"`
	DataPoints         int        `json:"data_points"`
}

// TargetAdjustment answers "what RIR should actually be prescribed".
// HasAdjustment is true only when the calibrated prescription differs
// from the nominal one.
type TargetAdjustment struct {
	ExerciseID      string     `json:"exercise_id"`
	NominalRIR      int        `json:"nominal_rir"`
	PrescribedRIR   int        `json:"prescribed_rir"`
	HasAdjustment   bool       `json:"has_adjustment"`
	ConfidenceLevel Confidence `json:"confidence_level,omitempty"`
	SmoothedBias    float64    `json:"smoothed_bias,omitempty"`
}
