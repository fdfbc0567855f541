package calibration

import (
	"math"
	"testing"
	"time"
)

func amrapAt(exercise string, offset time.Duration, weight float64, reps int) SetObservation {
	o := obsAt(exercise, offset, weight, reps)
	o.WasAMRAP = true
	o.ReportedRIR = 0
	return o
}

// TestPredictMaxRepsNoContext verifies that an AMRAP with no prior
// non-AMRAP samples produces no prediction.
func TestPredictMaxRepsNoContext(t *testing.T) {
	amrap := amrapAt("squat", time.Hour, 100, 11)

	if _, ok := PredictMaxReps(amrap, nil); ok {
		t.Error("empty context produced a prediction")
	}

	// A prior AMRAP is not comparison context either.
	prior := []SetObservation{amrapAt("squat", 0, 100, 12)}
	if _, ok := PredictMaxReps(amrap, prior); ok {
		t.Error("AMRAP-only context produced a prediction")
	}
}

// TestPredictMaxRepsCausality verifies that samples at or after the AMRAP
// timestamp are never used: only causal history may calibrate an event.
func TestPredictMaxRepsCausality(t *testing.T) {
	amrap := amrapAt("squat", time.Hour, 100, 11)
	prior := []SetObservation{
		obsAt("squat", time.Hour, 100, 8),     // same instant — excluded
		obsAt("squat", 2*time.Hour, 100, 8),   // future — excluded
	}
	if _, ok := PredictMaxReps(amrap, prior); ok {
		t.Error("non-causal samples produced a prediction")
	}
}

// TestPredictMaxRepsRecency verifies that the most recent sample wins
// over older ones, and that ties on the most recent timestamp have their
// 1RM estimates averaged.
func TestPredictMaxRepsRecency(t *testing.T) {
	amrap := amrapAt("bench", 10*time.Hour, 80, 10)

	prior := []SetObservation{
		obsAt("bench", 0, 60, 12),          // stale, should be ignored
		obsAt("bench", 5*time.Hour, 80, 8), // authoritative
	}
	got, ok := PredictMaxReps(amrap, prior)
	if !ok {
		t.Fatal("no prediction")
	}
	want := EstimatedRepsAtLoad(Estimated1RM(80, 8), 80)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("predicted = %g, want %g (recent sample only)", got, want)
	}

	// Two sets sharing the most recent timestamp: average the estimates.
	tied := []SetObservation{
		obsAt("bench", 5*time.Hour, 80, 8),
		obsAt("bench", 5*time.Hour, 80, 6),
	}
	got, ok = PredictMaxReps(amrap, tied)
	if !ok {
		t.Fatal("no prediction from tied samples")
	}
	avg1RM := (Estimated1RM(80, 8) + Estimated1RM(80, 6)) / 2
	want = EstimatedRepsAtLoad(avg1RM, 80)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("tied predicted = %g, want %g", got, want)
	}
}

// TestEstimateBiasSign verifies the signed gap: more reps than predicted
// means positive bias (effort under-reported), fewer means negative.
func TestEstimateBiasSign(t *testing.T) {
	prior := []SetObservation{obsAt("squat", 0, 100, 8)}

	// Round trip predicts exactly 8 reps at the same load.
	over := amrapAt("squat", time.Hour, 100, 11)
	_, bias, ok := EstimateBias(over, prior)
	if !ok {
		t.Fatal("no bias")
	}
	if math.Abs(bias-3) > 1e-6 {
		t.Errorf("bias = %g, want 3", bias)
	}

	under := amrapAt("squat", time.Hour, 100, 6)
	_, bias, _ = EstimateBias(under, prior)
	if math.Abs(bias-(-2)) > 1e-6 {
		t.Errorf("bias = %g, want -2", bias)
	}
}
