package calibration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func newTestEngine() *Engine {
	return NewEngine(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TestRecordSetValidation verifies that malformed observations are
// rejected synchronously with nothing mutated.
func TestRecordSetValidation(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name string
		obs  SetObservation
	}{
		{name: "empty exercise id", obs: SetObservation{WeightKg: 100, ActualReps: 8, Timestamp: sampleBase}},
		{name: "negative reps", obs: SetObservation{ExerciseID: "squat", WeightKg: 100, ActualReps: -1, Timestamp: sampleBase}},
		{name: "negative rir", obs: SetObservation{ExerciseID: "squat", WeightKg: 100, ActualReps: 8, ReportedRIR: -1, Timestamp: sampleBase}},
		{name: "negative weight", obs: SetObservation{ExerciseID: "squat", WeightKg: -5, ActualReps: 8, Timestamp: sampleBase}},
		{name: "zero timestamp", obs: SetObservation{ExerciseID: "squat", WeightKg: 100, ActualReps: 8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.RecordSet(tt.obs); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	// Nothing was stored by the rejected observations.
	if _, ok := e.samples.Latest("squat"); ok {
		t.Error("rejected observation was stored")
	}
}

// TestRecordSetMonotonicRejection verifies that an observation earlier
// than the exercise's latest stored sample is rejected with ErrOutOfOrder,
// while an equal timestamp is accepted.
func TestRecordSetMonotonicRejection(t *testing.T) {
	e := newTestEngine()

	if _, err := e.RecordSet(obsAt("squat", time.Hour, 100, 8)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := e.RecordSet(obsAt("squat", 0, 100, 8))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("error = %v, want ErrOutOfOrder", err)
	}

	// Same timestamp (two sets logged at the same minute) is allowed.
	if _, err := e.RecordSet(obsAt("squat", time.Hour, 100, 7)); err != nil {
		t.Errorf("equal timestamp rejected: %v", err)
	}

	// Other exercises are unaffected by squat's watermark.
	if _, err := e.RecordSet(obsAt("bench", 0, 80, 8)); err != nil {
		t.Errorf("independent exercise rejected: %v", err)
	}
}

// TestRecordSetNoContextNoResult verifies that the very first observation
// for a fresh exercise yields no calibration even when it is an AMRAP,
// and that the AMRAP is still absorbed as future context.
func TestRecordSetNoContextNoResult(t *testing.T) {
	e := newTestEngine()

	result, err := e.RecordSet(amrapAt("squat", 0, 100, 12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil (no prior context)", result)
	}
	if _, ok := e.samples.Latest("squat"); !ok {
		t.Error("AMRAP without context was not stored")
	}
}

// TestRecordSetAccurateTrainee verifies that an AMRAP landing on the
// model's prediction is labeled accurate.
func TestRecordSetAccurateTrainee(t *testing.T) {
	e := newTestEngine()

	if _, err := e.RecordSet(obsAt("squat", 0, 100, 8)); err != nil {
		t.Fatal(err)
	}
	// At the same load the model predicts exactly 8 reps to failure.
	result, err := e.RecordSet(amrapAt("squat", time.Hour, 100, 8))
	if err != nil {
		t.Fatal(err)
	}
	if result == nil {
		t.Fatal("no calibration emitted")
	}
	if result.BiasInterpretation != InterpretationAccurate {
		t.Errorf("interpretation = %q, want %q", result.BiasInterpretation, InterpretationAccurate)
	}
	if result.ConfidenceLevel != ConfidenceLow {
		t.Errorf("confidence = %q after one event, want low", result.ConfidenceLevel)
	}
}

// TestLowConfidenceGuard verifies that a single calibration event never
// shifts the prescription regardless of bias magnitude.
func TestLowConfidenceGuard(t *testing.T) {
	e := newTestEngine()

	if _, err := e.RecordSet(obsAt("squat", 0, 100, 8)); err != nil {
		t.Fatal(err)
	}
	result, err := e.RecordSet(amrapAt("squat", time.Hour, 100, 14))
	if err != nil {
		t.Fatal(err)
	}
	if result == nil || result.Bias < 5 {
		t.Fatalf("expected large positive bias, got %+v", result)
	}

	adj, err := e.AdjustedTarget("squat", 2)
	if err != nil {
		t.Fatal(err)
	}
	if adj.HasAdjustment || adj.PrescribedRIR != 2 {
		t.Errorf("adjustment = %+v, want pass-through at low confidence", adj)
	}
}

// TestSystematicUnderReporting drives five calibration events of bias +3
// and verifies confidence reaches medium and the prescribed RIR drops
// below the nominal target, clamped at zero.
func TestSystematicUnderReporting(t *testing.T) {
	e := newTestEngine()

	for i := 0; i < 5; i++ {
		base := time.Duration(2*i) * time.Hour
		if _, err := e.RecordSet(obsAt("squat", base, 100, 8)); err != nil {
			t.Fatal(err)
		}
		// Prediction at the same load is 8; 11 actual reps is bias +3.
		result, err := e.RecordSet(amrapAt("squat", base+time.Hour, 100, 11))
		if err != nil {
			t.Fatal(err)
		}
		if result == nil {
			t.Fatalf("event %d emitted no calibration", i+1)
		}
		if i+1 >= 3 && result.ConfidenceLevel == ConfidenceLow {
			t.Errorf("confidence still low after %d events", i+1)
		}
	}

	calib, ok := e.Calibration("squat")
	if !ok {
		t.Fatal("no calibration state")
	}
	if calib.BiasInterpretation != InterpretationUnderReported {
		t.Errorf("interpretation = %q, want %q", calib.BiasInterpretation, InterpretationUnderReported)
	}

	adj, err := e.AdjustedTarget("squat", 2)
	if err != nil {
		t.Fatal(err)
	}
	if !adj.HasAdjustment {
		t.Error("expected an adjustment at medium confidence")
	}
	if adj.PrescribedRIR >= 2 {
		t.Errorf("prescribed_rir = %d, want below nominal 2", adj.PrescribedRIR)
	}
	if adj.PrescribedRIR < 0 {
		t.Errorf("prescribed_rir = %d, negative reserve must never be prescribed", adj.PrescribedRIR)
	}
}

// TestAdjustedTargetUnknownExercise verifies graceful pass-through when
// no calibration exists, and input validation.
func TestAdjustedTargetUnknownExercise(t *testing.T) {
	e := newTestEngine()

	adj, err := e.AdjustedTarget("squat", 3)
	if err != nil {
		t.Fatal(err)
	}
	if adj.HasAdjustment || adj.PrescribedRIR != 3 {
		t.Errorf("adjustment = %+v, want pass-through", adj)
	}

	if _, err := e.AdjustedTarget("", 2); err == nil {
		t.Error("empty exercise id accepted")
	}
	if _, err := e.AdjustedTarget("squat", -1); err == nil {
		t.Error("negative nominal RIR accepted")
	}
}

// TestReset verifies that reset clears both samples and calibration state
// so the exercise starts over, including its timestamp watermark.
func TestReset(t *testing.T) {
	e := newTestEngine()

	if _, err := e.RecordSet(obsAt("squat", 0, 100, 8)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.RecordSet(amrapAt("squat", time.Hour, 100, 11)); err != nil {
		t.Fatal(err)
	}

	e.Reset("squat")

	if _, ok := e.Calibration("squat"); ok {
		t.Error("calibration survived reset")
	}
	// The watermark is gone: an older timestamp is acceptable again.
	if _, err := e.RecordSet(obsAt("squat", 0, 95, 8)); err != nil {
		t.Errorf("ingestion after reset failed: %v", err)
	}
}

type stubSource struct {
	sets []SetObservation
}

func (s *stubSource) ReplaySets(_ context.Context, _ int) ([]SetObservation, error) {
	return s.sets, nil
}

// TestReplay verifies that replaying persisted history through the engine
// produces the same state as live ingestion would have.
func TestReplay(t *testing.T) {
	src := &stubSource{sets: []SetObservation{
		obsAt("squat", 0, 100, 8),
		amrapAt("squat", time.Hour, 100, 11),
		obsAt("bench", 2*time.Hour, 80, 8),
	}}

	e := newTestEngine()
	sets, calibrations, err := e.Replay(context.Background(), src, 1)
	if err != nil {
		t.Fatal(err)
	}
	if sets != 3 {
		t.Errorf("sets replayed = %d, want 3", sets)
	}
	if calibrations != 1 {
		t.Errorf("calibrations = %d, want 1", calibrations)
	}

	if _, ok := e.Calibration("squat"); !ok {
		t.Error("replay built no calibration for squat")
	}
	if got := e.Calibrations(); len(got) != 1 {
		t.Errorf("snapshot size = %d, want 1", len(got))
	}
}

// TestConcurrentExercises verifies that independent exercises can be
// ingested from separate goroutines without coordination.
func TestConcurrentExercises(t *testing.T) {
	e := newTestEngine()
	exercises := []string{"squat", "bench", "deadlift", "row"}

	var wg sync.WaitGroup
	for _, ex := range exercises {
		wg.Add(1)
		go func(ex string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				base := time.Duration(2*i) * time.Hour
				if _, err := e.RecordSet(obsAt(ex, base, 100, 8)); err != nil {
					t.Errorf("%s: %v", ex, err)
					return
				}
				if _, err := e.RecordSet(amrapAt(ex, base+time.Hour, 100, 10)); err != nil {
					t.Errorf("%s: %v", ex, err)
					return
				}
			}
		}(ex)
	}
	wg.Wait()

	for _, ex := range exercises {
		calib, ok := e.Calibration(ex)
		if !ok {
			t.Errorf("%s has no calibration", ex)
			continue
		}
		if calib.ConfidenceLevel != ConfidenceHigh {
			t.Errorf("%s confidence = %q, want high", ex, calib.ConfidenceLevel)
		}
	}
}

// TestResetAllClearsEveryExercise verifies a global reset drops samples,
// calibrations and timestamp watermarks for all exercises at once.
func TestResetAllClearsEveryExercise(t *testing.T) {
	e := newTestEngine()

	for _, ex := range []string{"squat", "bench"} {
		if _, err := e.RecordSet(obsAt(ex, 0, 100, 8)); err != nil {
			t.Fatal(err)
		}
		if _, err := e.RecordSet(amrapAt(ex, time.Hour, 100, 11)); err != nil {
			t.Fatal(err)
		}
	}

	e.ResetAll()

	if got := e.Calibrations(); len(got) != 0 {
		t.Errorf("calibrations after global reset = %d, want 0", len(got))
	}
	// Watermarks are gone: older timestamps are acceptable again.
	if _, err := e.RecordSet(obsAt("squat", 0, 95, 8)); err != nil {
		t.Errorf("ingestion after global reset failed: %v", err)
	}
}

// TestResetAllKeepsLockIdentity verifies the per-exercise mutex survives
// a global reset, so a caller blocked on it cannot slip past the
// serialization by acquiring a replacement lock.
func TestResetAllKeepsLockIdentity(t *testing.T) {
	e := newTestEngine()

	if _, err := e.RecordSet(obsAt("squat", 0, 100, 8)); err != nil {
		t.Fatal(err)
	}

	before := e.exerciseLock("squat")
	e.ResetAll()
	after := e.exerciseLock("squat")

	if before != after {
		t.Error("global reset replaced the per-exercise lock")
	}
}

// TestResetAllConcurrentWithRecording hammers global resets against
// recording goroutines; the engine must stay consistent and usable.
func TestResetAllConcurrentWithRecording(t *testing.T) {
	e := newTestEngine()
	exercises := []string{"squat", "bench", "deadlift", "row"}

	var wg sync.WaitGroup
	for _, ex := range exercises {
		wg.Add(1)
		go func(ex string) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				// Timestamps only move forward per exercise, so a reset
				// in between never makes this out of order.
				if _, err := e.RecordSet(obsAt(ex, time.Duration(i)*time.Hour, 100, 8)); err != nil {
					t.Errorf("%s: %v", ex, err)
					return
				}
			}
		}(ex)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			e.ResetAll()
		}
	}()
	wg.Wait()

	e.ResetAll()
	if got := e.Calibrations(); len(got) != 0 {
		t.Errorf("calibrations after final reset = %d, want 0", len(got))
	}
	if _, err := e.RecordSet(obsAt("squat", 0, 100, 8)); err != nil {
		t.Errorf("engine unusable after concurrent resets: %v", err)
	}
}
