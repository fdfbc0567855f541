package mcp

import (
	"context"
	"time"

	"github.com/claude/truereps/internal/models"
	"github.com/claude/truereps/internal/storage"
)

// DataSource abstracts the set and calibration history queries MCP tools
// read from. *storage.DB satisfies it; tests substitute a stub.
type DataSource interface {
	QuerySets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.SetRow, error)
	QueryCalibrations(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.CalibrationRow, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
