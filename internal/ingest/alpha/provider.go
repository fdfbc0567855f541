package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/claude/truereps/internal/models"
)

// setMinutes spaces synthetic per-set timestamps within a session. The
// export records only the session start, but the engine needs a strict
// chronological order per exercise, so each successive set is placed a
// few minutes after the previous one.
const setMinutes = 3

// SetWriter is the storage surface the provider needs.
type SetWriter interface {
	DeleteSets(ctx context.Context, sessionDate time.Time, userID int) error
	InsertSets(ctx context.Context, rows []models.SetRow) (int64, error)
}

// Result summarizes one ingest run.
type Result struct {
	SessionsParsed int   `json:"sessions_parsed"`
	SetsReceived   int   `json:"sets_received"`
	SetsInserted   int64 `json:"sets_inserted"`
	SetsSkipped    int64 `json:"sets_skipped"`
}

// Provider processes Alpha Progression CSV exports into the set store.
type Provider struct {
	db  SetWriter
	log *slog.Logger
}

// NewProvider creates an Alpha Progression ingest provider.
func NewProvider(db SetWriter, log *slog.Logger) *Provider {
	return &Provider{db: db, log: log}
}

// Ingest parses a CSV export and stores the set data. Existing sets for
// each session date are deleted first so re-imports always reflect the
// latest parser output.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &Result{SessionsParsed: len(sessions)}
	var allRows []models.SetRow

	for _, s := range sessions {
		if err := p.db.DeleteSets(ctx, s.Date.Truncate(24*time.Hour), userID); err != nil {
			return nil, fmt.Errorf("deleting existing sets for session %s: %w", s.Date.Format("2006-01-02"), err)
		}
		allRows = append(allRows, Rows(s, userID)...)
	}

	if len(allRows) > 0 {
		inserted, err := p.db.InsertSets(ctx, allRows)
		if err != nil {
			return nil, fmt.Errorf("inserting sets: %w", err)
		}
		result.SetsReceived = len(allRows)
		result.SetsInserted = inserted
		result.SetsSkipped = int64(len(allRows)) - inserted
	}

	return result, nil
}

// Rows flattens one session into storage rows. Each set gets a synthetic
// timestamp a few minutes after the previous one so chronological order
// within the session is preserved. For an open-ended ("N+") prescription
// the final working set is flagged as taken to failure.
func Rows(s Session, userID int) []models.SetRow {
	var rows []models.SetRow
	offset := 0

	for _, ex := range s.Exercises {
		exerciseID := ExerciseID(ex.Name)

		lastWorking := -1
		if ex.OpenEnded {
			for i, set := range ex.Sets {
				if !set.IsWarmup {
					lastWorking = i
				}
			}
		}

		var maxReps *int
		if !ex.OpenEnded {
			target := ex.TargetReps
			maxReps = &target
		}

		for i, set := range ex.Sets {
			rows = append(rows, models.SetRow{
				UserID:        userID,
				SessionName:   s.Name,
				SessionDate:   s.Date.Truncate(24 * time.Hour),
				ExerciseID:    exerciseID,
				ExerciseName:  ex.Name,
				Equipment:     ex.Equipment,
				TargetRepsMin: ex.TargetReps,
				TargetRepsMax: maxReps,
				IsWarmup:      set.IsWarmup,
				SetNumber:     set.Number,
				WeightKg:      set.WeightKg,
				Reps:          set.Reps,
				RIR:           clampRIR(set.RIR),
				WasAMRAP:      i == lastWorking,
				PerformedAt:   s.Date.Add(time.Duration(offset) * setMinutes * time.Minute),
			})
			offset++
		}
	}
	return rows
}

// clampRIR rounds the export's fractional RIR to an integer and clamps
// at zero; the untracked sentinel (-1) maps to zero as well.
func clampRIR(rir float64) int {
	v := int(math.Round(rir))
	if v < 0 {
		return 0
	}
	return v
}
