// Package server provides the HTTP surface of the integration service. It is
// a thin transport layer over the pipeline coordinator: multipart upload
// handling, payload decoding, and response encoding.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daniel/graph-integrator/internal/clients"
	"github.com/daniel/graph-integrator/internal/config"
	"github.com/daniel/graph-integrator/internal/outcome"
	"github.com/daniel/graph-integrator/internal/pipeline"
	"github.com/daniel/graph-integrator/internal/types"
)

// Pipeline is the coordinator surface the server dispatches to.
type Pipeline interface {
	Run(ctx context.Context, in pipeline.RunInput) *types.PipelineRun
	Annotate(ctx context.Context, sel types.MotifSelection) *types.AnnotationResult
}

// JobStatusChecker backs the job-status proxy endpoint.
type JobStatusChecker interface {
	JobStatus(ctx context.Context, jobID string) outcome.Outcome[clients.JobState]
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	pipeline   Pipeline
	builder    JobStatusChecker
	cfg        *config.Config
}

// New creates a new server instance over the injected collaborators.
func New(cfg *config.Config, p Pipeline, builder JobStatusChecker) *Server {
	s := &Server{
		pipeline: p,
		builder:  builder,
		cfg:      cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/pipeline/execute", s.handleExecute)
	mux.HandleFunc("POST /api/pipeline/annotate", s.handleAnnotate)
	mux.HandleFunc("GET /api/pipeline/job/{id}", s.handleJobStatus)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the server until an interrupt or termination signal, then shuts
// down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
