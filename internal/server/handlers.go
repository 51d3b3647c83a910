package server

import (
	"encoding/json"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/daniel/graph-integrator/internal/artifacts"
	"github.com/daniel/graph-integrator/internal/pipeline"
	"github.com/daniel/graph-integrator/internal/schemas"
	"github.com/daniel/graph-integrator/internal/types"
)

// maxUploadBytes caps the multipart form kept in memory before spilling to
// disk.
const maxUploadBytes = 64 << 20

// AnnotateRequest is the request body for /api/pipeline/annotate.
type AnnotateRequest struct {
	RunID       string          `json:"run_id"`
	Stage2JobID string          `json:"neo4j_job_id"`
	Motif       json.RawMessage `json:"motif"`
}

// JobStatusResponse is the response for the job-status proxy.
type JobStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// handleExecute accepts the tabular upload plus config and schema documents
// and runs the full pipeline synchronously. The pipeline result is always a
// structured payload; downstream failures are reported inside it, not as
// HTTP errors.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		// Single-file clients use the "file" field.
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		s.errorResponse(w, http.StatusBadRequest, "At least one CSV file is required")
		return
	}
	for _, fh := range files {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
			s.errorResponse(w, http.StatusBadRequest, "Only CSV files are supported")
			return
		}
	}

	cfgDoc := r.FormValue("config")
	schemaDoc := r.FormValue("schema_json")
	if cfgDoc == "" || schemaDoc == "" {
		s.errorResponse(w, http.StatusBadRequest, "config and schema_json are required")
		return
	}
	if err := schemas.ValidateGraphSchema(schemaDoc); err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	mining := types.DefaultMiningConfig()
	if raw := r.FormValue("miner_config"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mining); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid miner_config JSON: "+err.Error())
			return
		}
	}

	arena, paths, err := s.stageUploads(files)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to stage uploads: "+err.Error())
		return
	}

	// The coordinator owns the arena from here and releases it on every
	// exit path.
	run := s.pipeline.Run(r.Context(), pipeline.RunInput{
		CSVPaths:   paths,
		Config:     cfgDoc,
		SchemaJSON: schemaDoc,
		TenantID:   r.FormValue("tenant_id"),
		SessionID:  r.FormValue("session_id"),
		Mining:     mining,
		Arena:      arena,
	})
	s.jsonResponse(w, http.StatusOK, run)
}

// stageUploads copies the uploaded files into a fresh arena and returns
// their on-disk paths. On error the arena is released before returning.
func (s *Server) stageUploads(files []*multipart.FileHeader) (*artifacts.Arena, []string, error) {
	arena, err := artifacts.NewArena(s.cfg.CSVCachePath, "upload")
	if err != nil {
		return nil, nil, err
	}

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			_ = arena.Release()
			return nil, nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
		}
		path, err := arena.AddFile(fh.Filename, f)
		_ = f.Close()
		if err != nil {
			_ = arena.Release()
			return nil, nil, err
		}
		paths = append(paths, path)
	}
	return arena, paths, nil
}

// handleAnnotate forwards a motif selection through the readiness gate to
// the annotation service.
func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	var req AnnotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result := s.pipeline.Annotate(r.Context(), types.MotifSelection{
		RunID:       req.RunID,
		Stage2JobID: req.Stage2JobID,
		Motif:       req.Motif,
	})
	s.jsonResponse(w, http.StatusOK, result)
}

// handleJobStatus proxies the builder's status for one job.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		s.errorResponse(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	out := s.builder.JobStatus(r.Context(), jobID)
	if !out.OK() {
		log.Printf("Job status lookup failed for %s: %v", jobID, out.Err)
		s.errorResponse(w, HTTPStatus(out.Err), out.Err.Message)
		return
	}
	s.jsonResponse(w, http.StatusOK, JobStatusResponse{JobID: jobID, Status: out.Value.Status})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "integration-service",
	})
}
