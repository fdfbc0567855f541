package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/claude/truereps/internal/calibration"
	"github.com/claude/truereps/internal/config"
	"github.com/claude/truereps/internal/mcp"
	"github.com/claude/truereps/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	remoteURL := flag.String("remote", "", "base URL of a running TrueReps server; when set, data is fetched over the REST API instead of Postgres")
	userID := flag.Int("user", 1, "user ID to serve data for")
	flag.Parse()

	// stdout carries the MCP protocol; all logging goes to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := context.Background()

	var ds mcp.DataSource
	var src calibration.SetSource
	engCfg := calibration.Config{}

	if *remoteURL != "" {
		client := mcp.NewHTTPClient(*remoteURL)
		ds = client
		src = client
		log.Info("remote mode", "url", *remoteURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}

		db, err := storage.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		ds = db
		src = db
		engCfg = calibration.Config{
			MaxSampleAge:       cfg.Engine.SampleMaxAge(),
			MaxSamples:         cfg.Engine.SampleMaxCount,
			MediumConfidenceAt: cfg.Engine.MediumConfidenceAt,
			HighConfidenceAt:   cfg.Engine.HighConfidenceAt,
		}
		log.Info("local mode", "database", cfg.Database.Host)
	}

	eng := calibration.NewEngine(engCfg, log)
	sets, calibrations, err := eng.Replay(ctx, src, *userID)
	if err != nil {
		log.Error("calibration replay failed", "error", err)
		os.Exit(1)
	}
	log.Info("calibration state rebuilt", "sets", sets, "calibrations", calibrations)

	s := mcp.New(ds, eng, Version, log)

	ctxFunc := mcpserver.WithStdioContextFunc(func(ctx context.Context) context.Context {
		return mcp.WithUserID(ctx, *userID)
	})
	if err := mcpserver.ServeStdio(s, ctxFunc); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
