package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/daniel/graph-integrator/internal/outcome"
	"github.com/daniel/graph-integrator/internal/types"
)

// primaryArtifactFile is the filename the builder writes the serialized
// primary graph under, inside its per-job shared-storage directory.
const primaryArtifactFile = "networkx_graph.pkl"

// BuilderClient talks to the graph builder service.
type BuilderClient struct {
	baseURL      string
	sharedOutput string
	http         *http.Client
}

// NewBuilderClient creates a builder adapter. timeout bounds every Load call;
// status and metadata lookups use the caller's context deadline.
func NewBuilderClient(baseURL, sharedOutput string, timeout time.Duration) *BuilderClient {
	return &BuilderClient{
		baseURL:      baseURL,
		sharedOutput: sharedOutput,
		http:         &http.Client{Timeout: timeout},
	}
}

// LoadRequest is one graph-generation request: the uploaded tabular files
// plus the config and schema documents, targeting one writer kind.
type LoadRequest struct {
	CSVPaths   []string
	Config     string
	SchemaJSON string
	Writer     types.WriterKind
	TenantID   string
	SessionID  string
}

// LoadResult carries the job identity the builder assigned to the artifact.
type LoadResult struct {
	JobID string `json:"job_id"`
}

// JobState is the builder's self-reported status for one job.
type JobState struct {
	Status string `json:"status"`
}

// StateCompleted is the terminal status meaning the job's artifact is ready.
const StateCompleted = "completed"

// ArtifactMetadata describes a generated artifact. GraphType backs the
// graph-kind derivation for mining requests that leave it unspecified.
type ArtifactMetadata struct {
	GraphType types.GraphType `json:"graph_type"`
	NodeCount int             `json:"node_count"`
	EdgeCount int             `json:"edge_count"`
}

// Load uploads the tabular files and documents and starts a graph-generation
// job for the requested writer kind.
func (c *BuilderClient) Load(ctx context.Context, req LoadRequest) outcome.Outcome[LoadResult] {
	body, contentType, err := buildLoadBody(req)
	if err != nil {
		return outcome.Failure[LoadResult](outcome.KindValidation, "builder: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/load", body)
	if err != nil {
		return outcome.Failure[LoadResult](outcome.KindValidation, "builder: failed to build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return outcome.FailureErr[LoadResult](transportFailure("builder", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if !success(resp.StatusCode) {
		return outcome.FailureErr[LoadResult](remoteFailure("builder", resp.StatusCode, readLimitedBody(resp.Body)))
	}

	raw := readLimitedBody(resp.Body)
	var result LoadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return outcome.FailureErr[LoadResult](invalidResponse("builder", "response is not valid JSON", raw))
	}
	if result.JobID == "" {
		return outcome.FailureErr[LoadResult](invalidResponse("builder", "response is missing job_id", raw))
	}
	return outcome.Success(result)
}

// JobStatus fetches the builder's status for one job.
func (c *BuilderClient) JobStatus(ctx context.Context, jobID string) outcome.Outcome[JobState] {
	var state JobState
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/job/%s", c.baseURL, jobID), &state); err != nil {
		return outcome.FailureErr[JobState](err)
	}
	if state.Status == "" {
		return outcome.FailureErr[JobState](invalidResponse("builder", "status response is missing status", nil))
	}
	return outcome.Success(state)
}

// ArtifactMetadata fetches the metadata the builder recorded for a job's
// artifact.
func (c *BuilderClient) ArtifactMetadata(ctx context.Context, jobID string) outcome.Outcome[ArtifactMetadata] {
	var meta ArtifactMetadata
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/job/%s/metadata", c.baseURL, jobID), &meta); err != nil {
		return outcome.FailureErr[ArtifactMetadata](err)
	}
	return outcome.Success(meta)
}

// PrimaryArtifactPath returns the shared-storage path the builder places the
// primary (networkx) artifact at for a job.
func (c *BuilderClient) PrimaryArtifactPath(jobID string) string {
	return filepath.Join(c.sharedOutput, jobID, primaryArtifactFile)
}

func (c *BuilderClient) getJSON(ctx context.Context, url string, v any) *outcome.Error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &outcome.Error{Kind: outcome.KindValidation, Message: "builder: failed to build request: " + err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return transportFailure("builder", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !success(resp.StatusCode) {
		return remoteFailure("builder", resp.StatusCode, readLimitedBody(resp.Body))
	}
	raw := readLimitedBody(resp.Body)
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidResponse("builder", "response is not valid JSON", raw)
	}
	return nil
}

// buildLoadBody assembles the multipart upload: every tabular file under the
// "files" field plus the config, schema, writer and tenant/session fields.
func buildLoadBody(req LoadRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, path := range req.CSVPaths {
		f, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open upload %s: %w", path, err)
		}
		part, err := w.CreateFormFile("files", filepath.Base(path))
		if err != nil {
			_ = f.Close()
			return nil, "", fmt.Errorf("failed to create upload part: %w", err)
		}
		if _, err := io.Copy(part, f); err != nil {
			_ = f.Close()
			return nil, "", fmt.Errorf("failed to copy upload %s: %w", path, err)
		}
		_ = f.Close()
	}

	fields := map[string]string{
		"config":      req.Config,
		"schema_json": req.SchemaJSON,
		"writer_type": string(req.Writer),
		"tenant_id":   req.TenantID,
	}
	if req.SessionID != "" {
		fields["session_id"] = req.SessionID
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize upload body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
