package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/truereps/internal/calibration"
	"github.com/claude/truereps/internal/models"
	"github.com/claude/truereps/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Store abstracts the persistence layer for HTTP handlers, so they can be
// tested without a live database. *storage.DB satisfies it.
type Store interface {
	InsertSets(ctx context.Context, rows []models.SetRow) (int64, error)
	InsertCalibration(ctx context.Context, row models.CalibrationRow) error
	QuerySets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.SetRow, error)
	QueryCalibrations(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.CalibrationRow, error)
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store  Store
	engine *calibration.Engine
	log    *slog.Logger
	apiKey string
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(store Store, engine *calibration.Engine, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		store:  store,
		engine: engine,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Mutating endpoints require the API key; reads are open since
		// access is expected to be gated by tsnet.
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/sets", s.handleRecordSet)
			r.Post("/exercises/{exerciseID}/reset", s.handleReset)
			r.Post("/reset", s.handleResetAll)
		})

		r.Get("/exercises", s.handleCalibrations)
		r.Get("/exercises/{exerciseID}/calibration", s.handleCalibration)
		r.Get("/exercises/{exerciseID}/target", s.handleAdjustedTarget)
		r.Get("/sets", s.handleSetHistory)
		r.Get("/calibrations", s.handleCalibrationHistory)
	})
}
