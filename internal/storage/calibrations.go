package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/truereps/internal/models"
)

// InsertCalibration persists one emitted calibration event.
func (db *DB) InsertCalibration(ctx context.Context, row models.CalibrationRow) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO calibration_events (id, user_id, exercise_id, exercise_name,
		 predicted_max_reps, actual_max_reps, bias, smoothed_bias,
		 interpretation, confidence, data_points, calibrated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (id) DO NOTHING`,
		row.ID, row.UserID, row.ExerciseID, row.ExerciseName,
		row.PredictedMaxReps, row.ActualMaxReps, row.Bias, row.SmoothedBias,
		row.Interpretation, row.Confidence, row.DataPoints, row.CalibratedAt)
	if err != nil {
		return fmt.Errorf("inserting calibration event: %w", err)
	}
	return nil
}

// QueryCalibrations retrieves calibration events in a date range, newest
// first, optionally filtered by exercise name (partial match).
func (db *DB) QueryCalibrations(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.CalibrationRow, error) {
	query := `SELECT id, user_id, exercise_id, exercise_name, predicted_max_reps,
		 actual_max_reps, bias, smoothed_bias, interpretation, confidence,
		 data_points, calibrated_at
		 FROM calibration_events
		 WHERE calibrated_at >= $1 AND calibrated_at < $2 AND user_id = $3`
	args := []any{start, end, userID}
	if exerciseFilter != "" {
		query += ` AND exercise_name ILIKE '%' || $4 || '%'`
		args = append(args, exerciseFilter)
	}
	query += ` ORDER BY calibrated_at DESC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying calibration events: %w", err)
	}
	defer rows.Close()

	var result []models.CalibrationRow
	for rows.Next() {
		var r models.CalibrationRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.ExerciseID, &r.ExerciseName, &r.PredictedMaxReps,
			&r.ActualMaxReps, &r.Bias, &r.SmoothedBias, &r.Interpretation, &r.Confidence,
			&r.DataPoints, &r.CalibratedAt); err != nil {
			return nil, fmt.Errorf("scanning calibration event: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
