// Package pipeline provides the coordinator that sequences the graph-mining
// workflow: primary graph generation, the parallel secondary-generation and
// mining branches, and the readiness-gated annotation path.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/daniel/graph-integrator/internal/aggregate"
	"github.com/daniel/graph-integrator/internal/artifacts"
	"github.com/daniel/graph-integrator/internal/clients"
	"github.com/daniel/graph-integrator/internal/outcome"
	"github.com/daniel/graph-integrator/internal/types"
)

// Builder is the slice of the graph-builder adapter the coordinator uses.
type Builder interface {
	Load(ctx context.Context, req clients.LoadRequest) outcome.Outcome[clients.LoadResult]
	ArtifactMetadata(ctx context.Context, jobID string) outcome.Outcome[clients.ArtifactMetadata]
	PrimaryArtifactPath(jobID string) string
}

// Miner is the slice of the mining adapter the coordinator uses.
type Miner interface {
	Mine(ctx context.Context, artifactPath string, cfg types.MiningConfig) outcome.Outcome[clients.MineResult]
}

// Annotator is the slice of the annotation adapter the coordinator uses.
type Annotator interface {
	Annotate(ctx context.Context, correlationID string, motif json.RawMessage) outcome.Outcome[json.RawMessage]
}

// ReadinessProber gates the annotation path on the secondary job.
type ReadinessProber interface {
	IsReady(ctx context.Context, jobID string) bool
}

// RunStore optionally persists run records. Store failures are logged and
// never affect the run result.
type RunStore interface {
	CreateRun(ctx context.Context, run *types.PipelineRun) error
	CompleteRun(ctx context.Context, run *types.PipelineRun) error
	SaveMotifs(ctx context.Context, runID string, motifs []json.RawMessage, statistics json.RawMessage) error
}

// branch log prefixes distinguish concurrent output.
const (
	prefixSecondary = "[Secondary] "
	prefixMining    = "[Mining]    "
)

// Coordinator owns the workflow: stage ordering, job-identity propagation,
// the parallel fan-out, and construction of the final result. All
// collaborators are injected at construction time; the coordinator holds no
// process-wide state, and concurrent runs are fully independent.
type Coordinator struct {
	builder   Builder
	miner     Miner
	annotator Annotator
	prober    ReadinessProber
	store     RunStore
}

// Option configures optional coordinator collaborators.
type Option func(*Coordinator)

// WithRunStore attaches an optional run-record store.
func WithRunStore(store RunStore) Option {
	return func(c *Coordinator) { c.store = store }
}

// New creates a coordinator over the injected downstream adapters.
func New(builder Builder, miner Miner, annotator Annotator, prober ReadinessProber, opts ...Option) *Coordinator {
	c := &Coordinator{
		builder:   builder,
		miner:     miner,
		annotator: annotator,
		prober:    prober,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunInput is one pipeline submission. Arena, when set, holds the uploaded
// tabular files; the coordinator owns it for the duration of the run and
// releases it on every exit path.
type RunInput struct {
	CSVPaths   []string
	Config     string
	SchemaJSON string
	TenantID   string
	SessionID  string
	Mining     types.MiningConfig
	Arena      *artifacts.Arena
}

// Run executes the full pipeline and always returns a structured result; no
// failure surfaces as an error. Re-invocation produces a fresh attempt under
// a fresh run ID; there is no deduplication of identical requests.
func (c *Coordinator) Run(ctx context.Context, in RunInput) *types.PipelineRun {
	run := &types.PipelineRun{
		RunID:    uuid.New().String(),
		TenantID: in.TenantID,
		Motifs:   []json.RawMessage{},
	}
	if run.TenantID == "" {
		run.TenantID = "default"
	}
	run.SessionID = in.SessionID
	if run.SessionID == "" {
		run.SessionID = uuid.New().String()
	}

	if in.Arena != nil {
		defer func() {
			if err := in.Arena.Release(); err != nil {
				fmt.Printf("Warning: failed to release run artifacts: %v\n", err)
			}
		}()
	}

	// Request validation happens before any network call.
	if err := in.Mining.Validate(); err != nil {
		run.Status = types.StatusFailed
		run.Error = &outcome.Error{Kind: outcome.KindValidation, Message: err.Error()}
		return run
	}
	if len(in.CSVPaths) == 0 {
		run.Status = types.StatusFailed
		run.Error = &outcome.Error{Kind: outcome.KindValidation, Message: "at least one tabular input file is required"}
		return run
	}

	c.storeCreate(ctx, run)

	// Stage 1: primary graph generation. The parallel branches both consume
	// its output, so a failure here is fatal to the whole run.
	fmt.Printf("Run %s: generating primary graph...\n", run.RunID)
	primary := c.builder.Load(ctx, clients.LoadRequest{
		CSVPaths:   in.CSVPaths,
		Config:     in.Config,
		SchemaJSON: in.SchemaJSON,
		Writer:     types.WriterNetworkX,
		TenantID:   run.TenantID,
		SessionID:  run.SessionID,
	})
	if !primary.OK() {
		run.Status = types.StatusFailed
		run.Error = primary.Err
		c.storeComplete(ctx, run)
		return run
	}
	run.Stage1JobID = primary.Value.JobID
	run.PrimaryArtifact = c.builder.PrimaryArtifactPath(primary.Value.JobID)

	// Stage 2: secondary graph generation and motif mining, concurrently.
	// Neither branch cancels the other; both outcomes are always reported.
	fmt.Printf("Run %s: launching secondary-graph and mining branches...\n", run.RunID)
	secondary, mining := aggregate.Join2(ctx,
		func(ctx context.Context) outcome.Outcome[clients.LoadResult] {
			fmt.Printf("%sgenerating graph database from %s...\n", prefixSecondary, run.Stage1JobID)
			return c.builder.Load(ctx, clients.LoadRequest{
				CSVPaths:   in.CSVPaths,
				Config:     in.Config,
				SchemaJSON: in.SchemaJSON,
				Writer:     types.WriterNeo4j,
				TenantID:   run.TenantID,
				SessionID:  run.SessionID,
			})
		},
		func(ctx context.Context) outcome.Outcome[clients.MineResult] {
			fmt.Printf("%smining motifs from %s...\n", prefixMining, run.PrimaryArtifact)
			return c.mine(ctx, run.Stage1JobID, run.PrimaryArtifact, in.Mining)
		},
	)

	c.merge(run, secondary, mining)

	if run.Status != types.StatusFailed && len(run.Motifs) > 0 {
		c.storeMotifs(ctx, run)
	}
	c.storeComplete(ctx, run)
	return run
}

// mine resolves the graph kind when the request left it unspecified, then
// dispatches the mining call.
func (c *Coordinator) mine(ctx context.Context, stage1JobID, artifactPath string, cfg types.MiningConfig) outcome.Outcome[clients.MineResult] {
	if cfg.GraphType == "" {
		meta := c.builder.ArtifactMetadata(ctx, stage1JobID)
		if !meta.OK() {
			return outcome.FailureErr[clients.MineResult](meta.Err)
		}
		cfg.GraphType = meta.Value.GraphType
	}
	return c.miner.Mine(ctx, artifactPath, cfg)
}

// merge folds the two branch outcomes into the combined run result.
func (c *Coordinator) merge(run *types.PipelineRun, secondary outcome.Outcome[clients.LoadResult], mining outcome.Outcome[clients.MineResult]) {
	if secondary.OK() {
		run.Stage2JobID = secondary.Value.JobID
		run.Stage2Ready = true
	}
	if mining.OK() {
		run.Motifs = mining.Value.Motifs
		run.Statistics = mining.Value.Statistics
	}

	switch {
	case secondary.OK() && mining.OK():
		run.Status = types.StatusSuccess
	case secondary.OK() || mining.OK():
		run.Status = types.StatusPartialFailure
		if !mining.OK() {
			run.Error = branchError("mining", mining.Err)
		} else {
			run.Error = branchError("secondary graph", secondary.Err)
		}
	default:
		run.Status = types.StatusFailed
		run.Error = &outcome.Error{
			Kind: mining.Err.Kind,
			Message: fmt.Sprintf("mining: %s; secondary graph: %s",
				mining.Err.Message, secondary.Err.Message),
		}
	}
}

// branchError labels a failure with the branch it came from.
func branchError(branch string, err *outcome.Error) *outcome.Error {
	return &outcome.Error{
		Kind:    err.Kind,
		Message: branch + ": " + err.Message,
		Status:  err.Status,
		Body:    err.Body,
	}
}

// Annotate runs the readiness-gated annotation path for a previously mined
// selection. A negative readiness probe short-circuits: the annotation
// adapter is never invoked and the caller gets a not-ready failure. There is
// no retry loop inside this call.
func (c *Coordinator) Annotate(ctx context.Context, sel types.MotifSelection) *types.AnnotationResult {
	result := &types.AnnotationResult{
		RunID:       sel.RunID,
		Stage2JobID: sel.Stage2JobID,
	}

	if err := sel.Validate(); err != nil {
		result.Status = types.AnnotationFailed
		result.Error = &outcome.Error{Kind: outcome.KindValidation, Message: err.Error()}
		return result
	}

	if !c.prober.IsReady(ctx, sel.Stage2JobID) {
		result.Status = types.AnnotationFailed
		result.Error = &outcome.Error{
			Kind:    outcome.KindNotReady,
			Message: fmt.Sprintf("graph database job %s is not ready", sel.Stage2JobID),
		}
		return result
	}

	annotated := c.annotator.Annotate(ctx, sel.Stage2JobID, sel.Motif)
	if !annotated.OK() {
		result.Status = types.AnnotationFailed
		result.Error = annotated.Err
		return result
	}
	result.Status = types.AnnotationSuccess
	result.Annotation = annotated.Value
	return result
}

func (c *Coordinator) storeCreate(ctx context.Context, run *types.PipelineRun) {
	if c.store == nil {
		return
	}
	if err := c.store.CreateRun(ctx, run); err != nil {
		fmt.Printf("Warning: failed to persist run %s: %v\n", run.RunID, err)
	}
}

func (c *Coordinator) storeComplete(ctx context.Context, run *types.PipelineRun) {
	if c.store == nil {
		return
	}
	if err := c.store.CompleteRun(ctx, run); err != nil {
		fmt.Printf("Warning: failed to persist run %s completion: %v\n", run.RunID, err)
	}
}

func (c *Coordinator) storeMotifs(ctx context.Context, run *types.PipelineRun) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveMotifs(ctx, run.RunID, run.Motifs, run.Statistics); err != nil {
		fmt.Printf("Warning: failed to persist run %s motifs: %v\n", run.RunID, err)
	}
}
