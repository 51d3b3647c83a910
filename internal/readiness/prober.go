// Package readiness gates the annotation stage on the builder's secondary
// job having finished loading the graph database.
package readiness

import (
	"context"
	"time"

	"github.com/daniel/graph-integrator/internal/clients"
	"github.com/daniel/graph-integrator/internal/outcome"
)

// DefaultProbeTimeout bounds one status check. It is deliberately far below
// the builder's operation timeout: a probe is a quick question, not a wait.
const DefaultProbeTimeout = 10 * time.Second

// StatusChecker is the slice of the builder adapter the prober needs.
type StatusChecker interface {
	JobStatus(ctx context.Context, jobID string) outcome.Outcome[clients.JobState]
}

// Prober performs single-shot readiness checks against the builder's status
// endpoint.
type Prober struct {
	checker StatusChecker
	timeout time.Duration
}

// NewProber creates a prober over the given status checker. A non-positive
// timeout falls back to DefaultProbeTimeout.
func NewProber(checker StatusChecker, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{checker: checker, timeout: timeout}
}

// IsReady reports whether the job's status is the terminal "completed"
// value. Any transport failure, non-success status, or other status value is
// uniformly "not ready" and is never surfaced as an error.
//
// This is a single shot: "not finished yet" and "will never finish" are
// indistinguishable to the caller, who must re-invoke to wait.
func (p *Prober) IsReady(ctx context.Context, jobID string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out := p.checker.JobStatus(ctx, jobID)
	return out.OK() && out.Value.Status == clients.StateCompleted
}
