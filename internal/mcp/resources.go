package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/claude/truereps/internal/calibration"
	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) calibrationSummary(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cals := h.eng.Calibrations()

	byConfidence := map[calibration.Confidence]int{}
	for _, c := range cals {
		byConfidence[c.ConfidenceLevel]++
	}

	summary := map[string]any{
		"generated_at":  time.Now().Format(time.RFC3339),
		"exercises":     cals,
		"by_confidence": byConfidence,
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
