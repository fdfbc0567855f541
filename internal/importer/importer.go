// Package importer bulk-loads Alpha Progression CSV exports from a
// directory into the set store, tracking processed files in a local
// SQLite state database so repeated runs only touch new or changed
// exports.
package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude/truereps/internal/ingest/alpha"
)

// Stats accumulates counts across one import run.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int
	SessionsParsed int
	SetsInserted   int64
	SetsSkipped    int64
}

// Importer walks a directory of CSV exports and ingests each new file.
type Importer struct {
	provider *alpha.Provider
	state    *StateDB
	log      *slog.Logger
	dryRun   bool
}

// New creates an Importer. With dryRun set, files are parsed and counted
// but nothing is written to the database or the state DB.
func New(db alpha.SetWriter, state *StateDB, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{
		provider: alpha.NewProvider(db, log),
		state:    state,
		log:      log,
		dryRun:   dryRun,
	}
}

// Import processes every .csv file under dir. Individual file failures
// are counted and logged but do not abort the run.
func (imp *Importer) Import(ctx context.Context, dir string, userID int) (*Stats, error) {
	stats := &Stats{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".csv") {
			return nil
		}

		if err := imp.importFile(ctx, dir, path, userID, stats); err != nil {
			stats.FilesErrored++
			imp.log.Error("import file failed", "path", path, "error", err)
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walking %s: %w", dir, err)
	}
	return stats, nil
}

func (imp *Importer) importFile(ctx context.Context, dir, path string, userID int, stats *Stats) error {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = path
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}

	if imp.state != nil {
		imported, err := imp.state.IsImported(rel, info.Size(), hash)
		if err != nil {
			return fmt.Errorf("checking state: %w", err)
		}
		if imported {
			stats.FilesSkipped++
			imp.log.Debug("skipping already-imported file", "path", rel)
			return nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening: %w", err)
	}
	defer f.Close()

	if imp.dryRun {
		sessions, err := alpha.Parse(f)
		if err != nil {
			return fmt.Errorf("parsing: %w", err)
		}
		for _, s := range sessions {
			stats.SetsInserted += int64(len(alpha.Rows(s, userID)))
		}
		stats.SessionsParsed += len(sessions)
		stats.FilesProcessed++
		return nil
	}

	result, err := imp.provider.Ingest(ctx, f, userID)
	if err != nil {
		return err
	}

	stats.FilesProcessed++
	stats.SessionsParsed += result.SessionsParsed
	stats.SetsInserted += result.SetsInserted
	stats.SetsSkipped += result.SetsSkipped

	if imp.state != nil {
		if err := imp.state.MarkImported(rel, info.Size(), hash); err != nil {
			return fmt.Errorf("marking imported: %w", err)
		}
	}

	imp.log.Info("imported file", "path", rel,
		"sessions", result.SessionsParsed,
		"sets_inserted", result.SetsInserted,
		"sets_skipped", result.SetsSkipped,
	)
	return nil
}
