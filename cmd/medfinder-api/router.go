// Package main provides the API router setup.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/medicine-finder/cmd/medfinder-api/handlers"
	"github.com/spherical-ai/medicine-finder/cmd/medfinder-api/middleware"
	"github.com/spherical-ai/medicine-finder/internal/api/rpc"
	"github.com/spherical-ai/medicine-finder/internal/observability"
	"github.com/spherical-ai/medicine-finder/internal/ranking"
)

// RankingSession is the part of ranking.Session the router needs.
type RankingSession interface {
	RankAndRecord(ctx context.Context, req ranking.Request) (*ranking.RankedResult, error)
	State() ranking.State
}

// RouterConfig holds router settings.
type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg RouterConfig, session RankingSession) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"medicine-finder"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		state := session.State()
		status := http.StatusOK
		if state != ranking.StateReady {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{
			"status": readiness(state),
			"state":  state.String(),
		})
	})

	rankingHandler := handlers.NewRankingHandler(logger, session)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/rank", rankingHandler.Rank)
		r.Post("/rank/simple", rankingHandler.RankSimple)
	})

	path, rpcHandler := rpc.NewHandler(rpc.NewRankingService(logger, session),
		connect.WithReadMaxBytes(handlers.MaxRequestBytes))
	r.Mount(path, rpcHandler)

	return r
}

func readiness(s ranking.State) string {
	if s == ranking.StateReady {
		return "ready"
	}
	return "initializing"
}
