package storage

import (
	"context"
	"fmt"

	"github.com/claude/truereps/internal/calibration"
)

// Compile-time check: *DB can feed engine replay.
var _ calibration.SetSource = (*DB)(nil)

// ReplaySets returns the user's completed working sets in chronological
// order, warm-ups excluded, shaped for engine replay. The ordering
// matters: the engine enforces monotonic per-exercise ingestion.
func (db *DB) ReplaySets(ctx context.Context, userID int) ([]calibration.SetObservation, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_id, exercise_name, weight_kg, target_reps_min,
		 target_reps_max, reps, rir, was_amrap, performed_at
		 FROM training_sets
		 WHERE user_id = $1 AND NOT is_warmup
		 ORDER BY performed_at ASC, set_number ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying replay sets: %w", err)
	}
	defer rows.Close()

	var result []calibration.SetObservation
	for rows.Next() {
		var obs calibration.SetObservation
		if err := rows.Scan(&obs.ExerciseID, &obs.ExerciseName, &obs.WeightKg, &obs.Prescribed.Min,
			&obs.Prescribed.Max, &obs.ActualReps, &obs.ReportedRIR, &obs.WasAMRAP, &obs.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning replay set: %w", err)
		}
		result = append(result, obs)
	}
	return result, rows.Err()
}
