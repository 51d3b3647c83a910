package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/daniel/graph-integrator/internal/types"
)

// CreateRun inserts a new pipeline run record in the running state.
func (db *DB) CreateRun(ctx context.Context, run *types.PipelineRun) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (run_id, tenant_id, session_id, status)
		 VALUES ($1, $2, $3, 'running')`,
		run.RunID, run.TenantID, run.SessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun records a run's terminal status, job identities, and error.
func (db *DB) CompleteRun(ctx context.Context, run *types.PipelineRun) error {
	var errKind, errMsg *string
	if run.Error != nil {
		kind := string(run.Error.Kind)
		msg := run.Error.Message
		errKind, errMsg = &kind, &msg
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET status = $1, job_id = $2, neo4j_job_id = $3,
		     error_kind = $4, error_msg = $5, completed_at = NOW()
		 WHERE run_id = $6`,
		string(run.Status), run.Stage1JobID, run.Stage2JobID,
		errKind, errMsg, run.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveMotifs stores a run's mining output.
func (db *DB) SaveMotifs(ctx context.Context, runID string, motifs []json.RawMessage, statistics json.RawMessage) error {
	motifsJSON, err := json.Marshal(motifs)
	if err != nil {
		return fmt.Errorf("failed to marshal motifs: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO run_motifs (run_id, motifs, statistics)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id) DO UPDATE
		 SET motifs = EXCLUDED.motifs, statistics = EXCLUDED.statistics`,
		runID, motifsJSON, []byte(statistics),
	)
	if err != nil {
		return fmt.Errorf("failed to save motifs: %w", err)
	}
	return nil
}

// GetRun loads a run record. Returns an error when the run does not exist.
func (db *DB) GetRun(ctx context.Context, runID string) (*types.PipelineRun, error) {
	var run types.PipelineRun
	var status string
	err := db.pool.QueryRow(ctx,
		`SELECT run_id, tenant_id, COALESCE(session_id, ''),
		        COALESCE(job_id, ''), COALESCE(neo4j_job_id, ''), status
		 FROM pipeline_runs WHERE run_id = $1`,
		runID,
	).Scan(&run.RunID, &run.TenantID, &run.SessionID,
		&run.Stage1JobID, &run.Stage2JobID, &status)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	run.Status = types.RunStatus(status)
	return &run, nil
}
