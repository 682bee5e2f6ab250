package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/artur/social-points-bot/internal/database/repository"
)

const (
	requestTimeout = 10 * time.Second
	topSize        = 10
)

// Reporter is the read-only storage surface behind the endpoints. *repository.Store implements it.
type Reporter interface {
	Ping(ctx context.Context) error
	TotalUsers(ctx context.Context) (int64, error)
	TotalCommands(ctx context.Context) (int64, error)
	PopularCommands(ctx context.Context, limit int) ([]repository.CommandCount, error)
	PopularPlatforms(ctx context.Context, limit int) ([]repository.PlatformCount, error)
}

// Stats is the /stats response body.
type Stats struct {
	Users            int64                      `json:"users"`
	Commands         int64                      `json:"commands"`
	PopularCommands  []repository.CommandCount  `json:"popular_commands"`
	PopularPlatforms []repository.PlatformCount `json:"popular_platforms"`
}

// NewRouter sets up the health and stats endpoints.
func NewRouter(reporter Reporter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := reporter.Ping(r.Context()); err != nil {
			log.Printf("[API] Health check failed: %v", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("UNAVAILABLE"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := collectStats(r.Context(), reporter)
		if err != nil {
			log.Printf("[API] [%s] Failed to collect stats: %v", middleware.GetReqID(r.Context()), err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		respondWithJSON(w, http.StatusOK, stats)
	})

	return r
}

// NewServer wraps the router in an http.Server listening on addr.
func NewServer(addr string, reporter Reporter) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(reporter),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func collectStats(ctx context.Context, reporter Reporter) (*Stats, error) {
	var (
		stats Stats
		err   error
	)
	if stats.Users, err = reporter.TotalUsers(ctx); err != nil {
		return nil, err
	}
	if stats.Commands, err = reporter.TotalCommands(ctx); err != nil {
		return nil, err
	}
	if stats.PopularCommands, err = reporter.PopularCommands(ctx, topSize); err != nil {
		return nil, err
	}
	if stats.PopularPlatforms, err = reporter.PopularPlatforms(ctx, topSize); err != nil {
		return nil, err
	}
	if stats.PopularCommands == nil {
		stats.PopularCommands = []repository.CommandCount{}
	}
	if stats.PopularPlatforms == nil {
		stats.PopularPlatforms = []repository.PlatformCount{}
	}
	return &stats, nil
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[API] Failed to marshal JSON response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
