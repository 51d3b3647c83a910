// Package types defines the data model shared by the pipeline coordinator,
// the downstream client adapters, and the HTTP surface.
package types

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/daniel/graph-integrator/internal/outcome"
)

// RunStatus is the terminal status of a pipeline run.
type RunStatus string

const (
	// StatusSuccess means both parallel branches completed.
	StatusSuccess RunStatus = "success"
	// StatusPartialFailure means exactly one parallel branch failed; the
	// surviving branch's results are still populated.
	StatusPartialFailure RunStatus = "partial_failure"
	// StatusFailed means the run produced no usable output: the mandatory
	// first stage failed, the request was rejected by validation, or both
	// parallel branches failed.
	StatusFailed RunStatus = "error"
)

// PipelineRun is the structured result of one end-to-end pipeline execution.
// The coordinator exclusively creates and mutates it for the duration of one
// Run call; it is not persisted beyond the response unless the optional run
// store retains it.
type PipelineRun struct {
	RunID           string            `json:"run_id"`
	TenantID        string            `json:"tenant_id"`
	SessionID       string            `json:"session_id,omitempty"`
	Stage1JobID     string            `json:"job_id,omitempty"`
	Stage2JobID     string            `json:"neo4j_job_id,omitempty"`
	PrimaryArtifact string            `json:"primary_artifact,omitempty"`
	Status          RunStatus         `json:"status"`
	Motifs          []json.RawMessage `json:"motifs"`
	Statistics      json.RawMessage   `json:"statistics,omitempty"`
	Stage2Ready     bool              `json:"neo4j_ready"`
	Error           *outcome.Error    `json:"error,omitempty"`
}

// AnnotationStatus is the terminal status of an annotation request.
type AnnotationStatus string

const (
	AnnotationSuccess AnnotationStatus = "success"
	AnnotationFailed  AnnotationStatus = "error"
)

// MotifSelection is a user-chosen mining candidate plus the secondary job
// identity it is annotated against. Readiness of Stage2JobID must be
// confirmed before annotation is attempted.
type MotifSelection struct {
	RunID       string          `json:"run_id" validate:"required"`
	Stage2JobID string          `json:"neo4j_job_id" validate:"required"`
	Motif       json.RawMessage `json:"motif" validate:"required"`
}

// Validate validates the MotifSelection using the validator.
func (s *MotifSelection) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// AnnotationResult is the structured result of one annotation request.
type AnnotationResult struct {
	RunID       string           `json:"run_id"`
	Stage2JobID string           `json:"neo4j_job_id"`
	Status      AnnotationStatus `json:"status"`
	Annotation  json.RawMessage  `json:"annotation,omitempty"`
	Error       *outcome.Error   `json:"error,omitempty"`
}
