package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/claude/truereps/internal/models"
)

// InsertSets batch-inserts training set rows. Returns count inserted;
// duplicate rows (same user, exercise, timestamp and set number) are
// skipped so re-imports are idempotent.
func (db *DB) InsertSets(ctx context.Context, rows []models.SetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	const cols = 15
	query := `INSERT INTO training_sets (user_id, session_name, session_date,
		exercise_id, exercise_name, equipment, target_reps_min, target_reps_max,
		is_warmup, set_number, weight_kg, reps, rir, was_amrap, performed_at) VALUES `
	args := make([]any, 0, len(rows)*cols)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * cols
		placeholders := make([]string, cols)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		args = append(args, r.UserID, r.SessionName, r.SessionDate,
			r.ExerciseID, r.ExerciseName, r.Equipment, r.TargetRepsMin, r.TargetRepsMax,
			r.IsWarmup, r.SetNumber, r.WeightKg, r.Reps, r.RIR, r.WasAMRAP, r.PerformedAt)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting training sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QuerySets retrieves training sets in a date range, newest session
// first, optionally filtered by exercise name (partial match).
func (db *DB) QuerySets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.SetRow, error) {
	query := `SELECT user_id, session_name, session_date, exercise_id, exercise_name,
		 equipment, target_reps_min, target_reps_max, is_warmup, set_number,
		 weight_kg, reps, rir, was_amrap, performed_at
		 FROM training_sets
		 WHERE performed_at >= $1 AND performed_at < $2 AND user_id = $3`
	args := []any{start, end, userID}
	if exerciseFilter != "" {
		query += ` AND exercise_name ILIKE '%' || $4 || '%'`
		args = append(args, exerciseFilter)
	}
	query += ` ORDER BY performed_at DESC, set_number ASC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying training sets: %w", err)
	}
	defer rows.Close()

	var result []models.SetRow
	for rows.Next() {
		var r models.SetRow
		if err := rows.Scan(&r.UserID, &r.SessionName, &r.SessionDate, &r.ExerciseID, &r.ExerciseName,
			&r.Equipment, &r.TargetRepsMin, &r.TargetRepsMax, &r.IsWarmup, &r.SetNumber,
			&r.WeightKg, &r.Reps, &r.RIR, &r.WasAMRAP, &r.PerformedAt); err != nil {
			return nil, fmt.Errorf("scanning training set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// DeleteSets removes all sets for a session date so re-imports always
// reflect the latest parser output.
func (db *DB) DeleteSets(ctx context.Context, sessionDate time.Time, userID int) error {
	_, err := db.Pool.Exec(ctx,
		`DELETE FROM training_sets WHERE session_date = $1 AND user_id = $2`,
		sessionDate, userID)
	if err != nil {
		return fmt.Errorf("deleting training sets: %w", err)
	}
	return nil
}
