// Package web serves batch checks over HTTP with live job updates on a
// websocket.
package web

import (
	"context"
	"net/http"

	"rcheck/internal/config"
	"rcheck/internal/logger"
	"rcheck/internal/pipeline"
	"rcheck/internal/recognition"
)

type Server struct {
	ctx    context.Context
	jobMgr *JobManager
	config config.Config
	logger *logger.Logger

	// Providers builds the providers for one job. The default shares one
	// fingerprint cache across all jobs of the server.
	Providers func(cfg config.Config) ([]recognition.Provider, error)
}

func NewServer(ctx context.Context, jobMgr *JobManager, cfg config.Config, log *logger.Logger) *Server {
	cache := recognition.NewCache()
	return &Server{
		ctx:    ctx,
		jobMgr: jobMgr,
		config: cfg,
		logger: log,
		Providers: func(cfg config.Config) ([]recognition.Provider, error) {
			return pipeline.NewProviders(cfg, cache, log)
		},
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/checks", s.handleCheck)
	mux.HandleFunc("/api/jobs", s.handleListJobs)
	mux.HandleFunc("/api/jobs/", s.handleJobAction)
	mux.HandleFunc("/ws", s.handleWebSocket)

	return s.loggingMiddleware(mux)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
