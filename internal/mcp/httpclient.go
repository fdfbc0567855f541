package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/claude/truereps/internal/calibration"
	"github.com/claude/truereps/internal/models"
)

// HTTPClient implements DataSource by calling the TrueReps REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time checks: HTTPClient satisfies DataSource and can feed
// engine replay in remote mode.
var (
	_ DataSource            = (*HTTPClient)(nil)
	_ calibration.SetSource = (*HTTPClient)(nil)
)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func historyParams(start, end time.Time, exerciseFilter string) url.Values {
	v := url.Values{}
	v.Set("start", start.Format(time.RFC3339))
	v.Set("end", end.Format(time.RFC3339))
	if exerciseFilter != "" {
		v.Set("exercise", exerciseFilter)
	}
	return v
}

func (c *HTTPClient) QuerySets(ctx context.Context, start, end time.Time, _ int, exerciseFilter string) ([]models.SetRow, error) {
	body, err := c.get(ctx, "/api/v1/sets", historyParams(start, end, exerciseFilter))
	if err != nil {
		return nil, err
	}

	var sets []models.SetRow
	if err := json.Unmarshal(body, &sets); err != nil {
		return nil, fmt.Errorf("httpclient: decode sets: %w", err)
	}
	return sets, nil
}

// ReplaySets fetches the server's full set history so a remote engine can
// rebuild calibration state locally. The API returns sets newest-first;
// the engine needs chronological per-exercise order, so the rows are
// re-sorted before conversion.
func (c *HTTPClient) ReplaySets(ctx context.Context, userID int) ([]calibration.SetObservation, error) {
	end := time.Now()
	start := end.AddDate(-5, 0, 0)

	sets, err := c.QuerySets(ctx, start, end, userID, "")
	if err != nil {
		return nil, err
	}

	sort.Slice(sets, func(i, j int) bool {
		if !sets[i].PerformedAt.Equal(sets[j].PerformedAt) {
			return sets[i].PerformedAt.Before(sets[j].PerformedAt)
		}
		return sets[i].SetNumber < sets[j].SetNumber
	})

	var result []calibration.SetObservation
	for _, row := range sets {
		if row.IsWarmup {
			continue
		}
		result = append(result, calibration.SetObservation{
			ExerciseID:   row.ExerciseID,
			ExerciseName: row.ExerciseName,
			WeightKg:     row.WeightKg,
			Prescribed:   calibration.RepTarget{Min: row.TargetRepsMin, Max: row.TargetRepsMax},
			ActualReps:   row.Reps,
			ReportedRIR:  row.RIR,
			WasAMRAP:     row.WasAMRAP,
			Timestamp:    row.PerformedAt,
		})
	}
	return result, nil
}

func (c *HTTPClient) QueryCalibrations(ctx context.Context, start, end time.Time, _ int, exerciseFilter string) ([]models.CalibrationRow, error) {
	body, err := c.get(ctx, "/api/v1/calibrations", historyParams(start, end, exerciseFilter))
	if err != nil {
		return nil, err
	}

	var events []models.CalibrationRow
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("httpclient: decode calibrations: %w", err)
	}
	return events, nil
}
