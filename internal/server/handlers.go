package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/truereps/internal/calibration"
	"github.com/claude/truereps/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// defaultUserID scopes all data in this single-user deployment.
const defaultUserID = 1

// recordSetRequest is the payload for POST /api/v1/sets. Effort can be
// reported either as RIR directly or as RPE, from which RIR is derived.
type recordSetRequest struct {
	ExerciseID   string                `json:"exercise_id"`
	ExerciseName string                `json:"exercise_name"`
	SessionName  string                `json:"session_name"`
	Equipment    string                `json:"equipment"`
	SetNumber    int                   `json:"set_number"`
	WeightKg     float64               `json:"weight_kg"`
	Prescribed   calibration.RepTarget `json:"prescribed_reps"`
	ActualReps   int                   `json:"actual_reps"`
	ReportedRIR  *int                  `json:"reported_rir"`
	RPE          *float64              `json:"rpe"`
	WasAMRAP     bool                  `json:"was_amrap"`
	Timestamp    time.Time             `json:"timestamp"`
}

type recordSetResponse struct {
	Stored      bool                           `json:"stored"`
	Calibration *calibration.CalibrationResult `json:"calibration"`
}

func (s *Server) handleRecordSet(w http.ResponseWriter, r *http.Request) {
	var req recordSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var rir int
	switch {
	case req.ReportedRIR != nil:
		rir = *req.ReportedRIR
	case req.RPE != nil:
		rir = calibration.RIRFromRPE(*req.RPE)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reported_rir or rpe is required"})
		return
	}

	obs := calibration.SetObservation{
		ExerciseID:   req.ExerciseID,
		ExerciseName: req.ExerciseName,
		WeightKg:     req.WeightKg,
		Prescribed:   req.Prescribed,
		ActualReps:   req.ActualReps,
		ReportedRIR:  rir,
		WasAMRAP:     req.WasAMRAP,
		Timestamp:    req.Timestamp,
	}
	if err := obs.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if latest, ok := s.engine.LatestTimestamp(obs.ExerciseID); ok && obs.Timestamp.Before(latest) {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": calibration.ErrOutOfOrder.Error() + ": " + obs.ExerciseID,
		})
		return
	}

	row := models.SetRow{
		UserID:        defaultUserID,
		SessionName:   req.SessionName,
		SessionDate:   req.Timestamp.Truncate(24 * time.Hour),
		ExerciseID:    req.ExerciseID,
		ExerciseName:  req.ExerciseName,
		Equipment:     req.Equipment,
		TargetRepsMin: req.Prescribed.Min,
		TargetRepsMax: req.Prescribed.Max,
		SetNumber:     req.SetNumber,
		WeightKg:      req.WeightKg,
		Reps:          req.ActualReps,
		RIR:           rir,
		WasAMRAP:      req.WasAMRAP,
		PerformedAt:   req.Timestamp,
	}
	// Persist before touching the engine: a failed insert leaves the
	// engine unchanged, so the client can retry the same payload without
	// double-ingesting the sample. The insert itself is idempotent.
	if _, err := s.store.InsertSets(r.Context(), []models.SetRow{row}); err != nil {
		s.log.Error("persisting set", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	result, err := s.engine.RecordSet(obs)
	if err != nil {
		// The row is already stored and will be folded in on the next
		// replay; only a concurrent writer can race us here.
		status := http.StatusBadRequest
		if errors.Is(err, calibration.ErrOutOfOrder) {
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if result != nil {
		if err := s.store.InsertCalibration(r.Context(), calibrationRow(*result)); err != nil {
			// The engine state is already updated; surface the failure
			// but keep the response useful.
			s.log.Error("persisting calibration event", "exercise", result.ExerciseID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, recordSetResponse{Stored: true, Calibration: result})
}

func calibrationRow(result calibration.CalibrationResult) models.CalibrationRow {
	return models.CalibrationRow{
		ID:               uuid.New(),
		UserID:           defaultUserID,
		ExerciseID:       result.ExerciseID,
		ExerciseName:     result.ExerciseName,
		PredictedMaxReps: result.PredictedMaxReps,
		ActualMaxReps:    result.ActualMaxReps,
		Bias:             result.Bias,
		SmoothedBias:     result.SmoothedBias,
		Interpretation:   result.BiasInterpretation,
		Confidence:       string(result.ConfidenceLevel),
		DataPoints:       result.DataPoints,
		CalibratedAt:     result.LastCalibrated,
	}
}

func (s *Server) handleAdjustedTarget(w http.ResponseWriter, r *http.Request) {
	exerciseID := chi.URLParam(r, "exerciseID")

	rirStr := r.URL.Query().Get("rir")
	if rirStr == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "rir parameter required"})
		return
	}
	nominal, err := strconv.Atoi(rirStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid rir: " + rirStr})
		return
	}

	adj, err := s.engine.AdjustedTarget(exerciseID, nominal)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, adj)
}

func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	exerciseID := chi.URLParam(r, "exerciseID")

	result, ok := s.engine.Calibration(exerciseID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no calibration for exercise"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCalibrations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Calibrations())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	exerciseID := chi.URLParam(r, "exerciseID")
	s.engine.Reset(exerciseID)
	writeJSON(w, http.StatusOK, map[string]string{"reset": exerciseID})
}

func (s *Server) handleResetAll(w http.ResponseWriter, _ *http.Request) {
	s.engine.ResetAll()
	writeJSON(w, http.StatusOK, map[string]string{"reset": "all"})
}

func (s *Server) handleSetHistory(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sets, err := s.store.QuerySets(r.Context(), start, end, defaultUserID, r.URL.Query().Get("exercise"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, sets)
}

func (s *Server) handleCalibrationHistory(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	events, err := s.store.QueryCalibrations(r.Context(), start, end, defaultUserID, r.URL.Query().Get("exercise"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseTimeRange(r *http.Request) (start, end time.Time, err error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" {
		// Default: last 90 days, a full training block.
		end = time.Now()
		start = end.AddDate(0, 0, -90)
		return
	}

	start, err = parseFlexTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if endStr == "" {
		end = time.Now()
		return
	}
	end, err = parseFlexTime(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
