package calibration

// PredictMaxReps estimates how many reps to failure an AMRAP load should
// allow, based on the exercise's prior non-AMRAP samples. Only samples
// strictly before the AMRAP's timestamp are eligible: calibrating a past
// event with future knowledge would bias the comparison.
//
// The most recent eligible sample is the authoritative strength estimate —
// strength and fatigue state change week to week, so recency outweighs
// averaging across the window. Samples sharing the most recent timestamp
// (multiple sets in one session) have their 1RM estimates averaged.
//
// Returns ok=false when no eligible sample exists; no calibration can be
// produced from an empty context.
func PredictMaxReps(amrap SetObservation, prior []SetObservation) (predicted float64, ok bool) {
	var latest []SetObservation
	for _, s := range prior {
		if s.WasAMRAP || !s.Timestamp.Before(amrap.Timestamp) {
			continue
		}
		switch {
		case len(latest) == 0 || s.Timestamp.After(latest[0].Timestamp):
			latest = latest[:0]
			latest = append(latest, s)
		case s.Timestamp.Equal(latest[0].Timestamp):
			latest = append(latest, s)
		}
	}
	if len(latest) == 0 {
		return 0, false
	}

	var sum float64
	for _, s := range latest {
		sum += Estimated1RM(s.WeightKg, s.ActualReps)
	}
	oneRM := sum / float64(len(latest))

	return EstimatedRepsAtLoad(oneRM, amrap.WeightKg), true
}

// EstimateBias compares an AMRAP outcome against the prediction derived
// from prior samples. A positive bias means the trainee did more reps than
// the reserve-based model expected (their reported effort leaves more in
// the tank); negative means they push closer to failure than reported.
func EstimateBias(amrap SetObservation, prior []SetObservation) (predicted, bias float64, ok bool) {
	predicted, ok = PredictMaxReps(amrap, prior)
	if !ok {
		return 0, 0, false
	}
	return predicted, float64(amrap.ActualReps) - predicted, true
}
