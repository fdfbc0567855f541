package calibration

import "math"

// brzyckiCeiling is the rep count beyond which the Brzycki curve is
// unreliable; estimates switch to a linear model past it.
const brzyckiCeiling = 12

// Estimated1RM converts a sub-maximal set into an estimated one-rep max
// using the Brzycki formula. Reps below 1 are treated as 1. Past 12 reps
// the formula degrades (and hits a singularity at 37), so a linear
// extension is used instead.
func Estimated1RM(weight float64, reps int) float64 {
	if reps <= 1 {
		return weight
	}
	if reps > brzyckiCeiling {
		return weight * (1 + float64(reps)/30)
	}
	return weight * 36 / (37 - float64(reps))
}

// EstimatedRepsAtLoad inverts Estimated1RM: given a known 1RM, how many
// reps to failure should a given load allow. Returns 0 when either input
// is non-positive. Results are clamped to a floor of 1; loads light enough
// to produce more than 12 reps fall back to the linear model inverse.
func EstimatedRepsAtLoad(oneRM, weight float64) float64 {
	if oneRM <= 0 || weight <= 0 {
		return 0
	}
	reps := 37 - 36*weight/oneRM
	if reps > brzyckiCeiling {
		return 30 * (oneRM/weight - 1)
	}
	if reps < 1 {
		return 1
	}
	return reps
}

// RIRFromRPE derives reps-in-reserve from a 1-10 rate of perceived
// exertion: round(10 - rpe), clamped at 0.
func RIRFromRPE(rpe float64) int {
	rir := int(math.Round(10 - rpe))
	if rir < 0 {
		return 0
	}
	return rir
}
