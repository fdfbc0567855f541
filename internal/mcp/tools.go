package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 90 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -90)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetAdjustedTarget = mcp.NewTool("get_adjusted_target",
	mcp.WithDescription("Translate a programmed RIR into the RIR that should actually be prescribed for an exercise, based on the trainee's learned reporting bias. Below medium confidence the nominal target passes through unchanged."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise identifier (slug, e.g. 'incline-bench-press')")),
	mcp.WithNumber("rir", mcp.Required(), mcp.Description("Programmed reps-in-reserve target (non-negative integer)")),
)

var toolGetCalibrationStatus = mcp.NewTool("get_calibration_status",
	mcp.WithDescription("Current calibration state for one exercise: smoothed bias, interpretation, confidence level, and data point count."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise identifier (slug)")),
)

var toolListCalibrations = mcp.NewTool("list_calibrations",
	mcp.WithDescription("Calibration state for every tracked exercise, sorted by exercise ID."),
)

var toolGetSetHistory = mcp.NewTool("get_set_history",
	mcp.WithDescription("Query recorded training sets. Returns weight, reps, reported RIR, prescription, and failure-set flags per set."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (partial match, e.g. 'bench press')")),
)

var toolGetCalibrationHistory = mcp.NewTool("get_calibration_history",
	mcp.WithDescription("Query past calibration events. Each event records predicted vs actual reps on a failure set and the bias at that time."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 90 days ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("exercise", mcp.Description("Filter by exercise name (partial match)")),
)

// --- Tool handlers ---

func (h *handlers) getAdjustedTarget(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	rir, err := req.RequireInt("rir")
	if err != nil {
		return mcp.NewToolResultError("rir parameter is required"), nil
	}

	adj, err := h.eng.AdjustedTarget(exerciseID, rir)
	if err != nil {
		return mcp.NewToolResultError("invalid target: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(adj)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getCalibrationStatus(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exerciseID, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}

	cal, ok := h.eng.Calibration(exerciseID)
	if !ok {
		return mcp.NewToolResultError("no calibration data for exercise " + exerciseID), nil
	}

	result, err := mcp.NewToolResultJSON(cal)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) listCalibrations(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(h.eng.Calibrations())
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSetHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	exerciseFilter := req.GetString("exercise", "")

	sets, err := h.ds.QuerySets(ctx, start, end, uid, exerciseFilter)
	if err != nil {
		h.log.Error("mcp get_set_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sets)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getCalibrationHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	exerciseFilter := req.GetString("exercise", "")

	events, err := h.ds.QueryCalibrations(ctx, start, end, uid, exerciseFilter)
	if err != nil {
		h.log.Error("mcp get_calibration_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(events)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
