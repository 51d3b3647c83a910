package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel/graph-integrator/internal/artifacts"
	"github.com/daniel/graph-integrator/internal/clients"
	"github.com/daniel/graph-integrator/internal/outcome"
	"github.com/daniel/graph-integrator/internal/types"
)

// mockBuilder scripts per-writer outcomes and counts invocations.
type mockBuilder struct {
	mu            sync.Mutex
	loadCalls     map[types.WriterKind]int
	loadOutcomes  map[types.WriterKind]outcome.Outcome[clients.LoadResult]
	loadDelays    map[types.WriterKind]time.Duration
	metadataCalls int
	metadata      outcome.Outcome[clients.ArtifactMetadata]
}

func newMockBuilder() *mockBuilder {
	return &mockBuilder{
		loadCalls:    map[types.WriterKind]int{},
		loadOutcomes: map[types.WriterKind]outcome.Outcome[clients.LoadResult]{},
		loadDelays:   map[types.WriterKind]time.Duration{},
		metadata:     outcome.Success(clients.ArtifactMetadata{GraphType: types.GraphTypeUndirected}),
	}
}

func (m *mockBuilder) Load(_ context.Context, req clients.LoadRequest) outcome.Outcome[clients.LoadResult] {
	m.mu.Lock()
	m.loadCalls[req.Writer]++
	delay := m.loadDelays[req.Writer]
	out := m.loadOutcomes[req.Writer]
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return out
}

func (m *mockBuilder) ArtifactMetadata(_ context.Context, _ string) outcome.Outcome[clients.ArtifactMetadata] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadataCalls++
	return m.metadata
}

func (m *mockBuilder) PrimaryArtifactPath(jobID string) string {
	return "/shared/output/" + jobID + "/networkx_graph.pkl"
}

func (m *mockBuilder) calls(w types.WriterKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls[w]
}

// mockMiner returns a scripted outcome and records what it was asked for.
type mockMiner struct {
	mu      sync.Mutex
	calls   int
	gotPath string
	gotCfg  types.MiningConfig
	out     outcome.Outcome[clients.MineResult]
	delay   time.Duration
}

func (m *mockMiner) Mine(_ context.Context, artifactPath string, cfg types.MiningConfig) outcome.Outcome[clients.MineResult] {
	m.mu.Lock()
	m.calls++
	m.gotPath = artifactPath
	m.gotCfg = cfg
	delay := m.delay
	out := m.out
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return out
}

type mockAnnotator struct {
	calls int
	out   outcome.Outcome[json.RawMessage]
}

func (m *mockAnnotator) Annotate(_ context.Context, _ string, _ json.RawMessage) outcome.Outcome[json.RawMessage] {
	m.calls++
	return m.out
}

type mockProber struct {
	calls int
	ready bool
}

func (m *mockProber) IsReady(_ context.Context, _ string) bool {
	m.calls++
	return m.ready
}

func motifs(raw ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(raw))
	for i, r := range raw {
		out[i] = json.RawMessage(r)
	}
	return out
}

func validInput() RunInput {
	return RunInput{
		CSVPaths:   []string{"/tmp/in.csv"},
		Config:     "cfg",
		SchemaJSON: `{"nodes": []}`,
		TenantID:   "default",
		Mining:     types.DefaultMiningConfig(),
	}
}

func newTestCoordinator(b *mockBuilder, m *mockMiner, a *mockAnnotator, p *mockProber) *Coordinator {
	return New(b, m, a, p)
}

func TestRun_BothBranchesSucceed(t *testing.T) {
	// Scenario: stage 1 yields J1, secondary yields N1, mining yields one
	// motif with statistics.
	builder := newMockBuilder()
	builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
	builder.loadOutcomes[types.WriterNeo4j] = outcome.Success(clients.LoadResult{JobID: "N1"})
	miner := &mockMiner{out: outcome.Success(clients.MineResult{
		Motifs:     motifs(`{"nodes": [1, 2]}`),
		Statistics: json.RawMessage(`{"count": 1}`),
	})}

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	run := c.Run(context.Background(), validInput())

	assert.Equal(t, types.StatusSuccess, run.Status)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, "J1", run.Stage1JobID)
	assert.Equal(t, "N1", run.Stage2JobID)
	assert.True(t, run.Stage2Ready)
	assert.Equal(t, "/shared/output/J1/networkx_graph.pkl", run.PrimaryArtifact)
	require.Len(t, run.Motifs, 1)
	assert.JSONEq(t, `{"count": 1}`, string(run.Statistics))
	assert.Nil(t, run.Error)

	assert.Equal(t, 1, builder.calls(types.WriterNetworkX))
	assert.Equal(t, 1, builder.calls(types.WriterNeo4j))
	assert.Equal(t, 1, miner.calls)
}

func TestRun_Stage1FailureIsTotalAndSkipsBranches(t *testing.T) {
	builder := newMockBuilder()
	builder.loadOutcomes[types.WriterNetworkX] = outcome.Failure[clients.LoadResult](outcome.KindRemote, "builder down")
	miner := &mockMiner{}

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	run := c.Run(context.Background(), validInput())

	assert.Equal(t, types.StatusFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, outcome.KindRemote, run.Error.Kind)
	assert.Empty(t, run.Stage1JobID)
	assert.Empty(t, run.Motifs)

	// Neither parallel branch may start without the primary artifact.
	assert.Equal(t, 0, builder.calls(types.WriterNeo4j))
	assert.Equal(t, 0, miner.calls)
}

func TestRun_MiningTimeoutSecondarySucceeds(t *testing.T) {
	// Partial failure: usable secondary graph, no motifs, error names the
	// mining branch with kind timeout.
	builder := newMockBuilder()
	builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
	builder.loadOutcomes[types.WriterNeo4j] = outcome.Success(clients.LoadResult{JobID: "N1"})
	miner := &mockMiner{out: outcome.Failure[clients.MineResult](outcome.KindTimeout, "miner request timed out")}

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	run := c.Run(context.Background(), validInput())

	assert.Equal(t, types.StatusPartialFailure, run.Status)
	assert.Equal(t, "N1", run.Stage2JobID)
	assert.True(t, run.Stage2Ready)
	assert.Empty(t, run.Motifs)
	require.NotNil(t, run.Error)
	assert.Equal(t, outcome.KindTimeout, run.Error.Kind)
	assert.Contains(t, run.Error.Message, "mining")
}

func TestRun_SecondaryFailsMiningSucceeds(t *testing.T) {
	builder := newMockBuilder()
	builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
	builder.loadOutcomes[types.WriterNeo4j] = outcome.Failure[clients.LoadResult](outcome.KindRemote, "neo4j writer crashed")
	miner := &mockMiner{out: outcome.Success(clients.MineResult{
		Motifs:     motifs(`{"nodes": []}`),
		Statistics: json.RawMessage(`{}`),
	})}

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	run := c.Run(context.Background(), validInput())

	assert.Equal(t, types.StatusPartialFailure, run.Status)
	assert.Empty(t, run.Stage2JobID)
	assert.False(t, run.Stage2Ready)
	assert.Len(t, run.Motifs, 1)
	require.NotNil(t, run.Error)
	assert.Contains(t, run.Error.Message, "secondary graph")
}

func TestRun_BothBranchesFail(t *testing.T) {
	builder := newMockBuilder()
	builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
	builder.loadOutcomes[types.WriterNeo4j] = outcome.Failure[clients.LoadResult](outcome.KindRemote, "writer crashed")
	miner := &mockMiner{out: outcome.Failure[clients.MineResult](outcome.KindTimeout, "timed out")}

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	run := c.Run(context.Background(), validInput())

	assert.Equal(t, types.StatusFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Contains(t, run.Error.Message, "mining")
	assert.Contains(t, run.Error.Message, "secondary graph")
	assert.Empty(t, run.Motifs)
}

func TestRun_BranchCompletionOrderDoesNotChangeResult(t *testing.T) {
	for _, slowSecondary := range []bool{true, false} {
		builder := newMockBuilder()
		builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
		builder.loadOutcomes[types.WriterNeo4j] = outcome.Success(clients.LoadResult{JobID: "N1"})
		miner := &mockMiner{out: outcome.Failure[clients.MineResult](outcome.KindTimeout, "timed out")}
		if slowSecondary {
			builder.loadDelays[types.WriterNeo4j] = 30 * time.Millisecond
		} else {
			miner.delay = 30 * time.Millisecond
		}

		c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
		run := c.Run(context.Background(), validInput())

		assert.Equal(t, types.StatusPartialFailure, run.Status)
		assert.Equal(t, "N1", run.Stage2JobID)
		assert.Equal(t, outcome.KindTimeout, run.Error.Kind)
	}
}

func TestRun_InvalidMiningBoundsRejectedBeforeAnyNetworkCall(t *testing.T) {
	builder := newMockBuilder()
	miner := &mockMiner{}

	in := validInput()
	in.Mining.MinPatternSize = 10
	in.Mining.MaxPatternSize = 5

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	run := c.Run(context.Background(), in)

	assert.Equal(t, types.StatusFailed, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, outcome.KindValidation, run.Error.Kind)

	assert.Equal(t, 0, builder.calls(types.WriterNetworkX))
	assert.Equal(t, 0, builder.calls(types.WriterNeo4j))
	assert.Equal(t, 0, miner.calls)
}

func TestRun_NoInputFilesRejected(t *testing.T) {
	in := validInput()
	in.CSVPaths = nil

	c := newTestCoordinator(newMockBuilder(), &mockMiner{}, &mockAnnotator{}, &mockProber{})
	run := c.Run(context.Background(), in)

	assert.Equal(t, types.StatusFailed, run.Status)
	assert.Equal(t, outcome.KindValidation, run.Error.Kind)
}

func TestRun_GraphTypeDerivedFromMetadata(t *testing.T) {
	builder := newMockBuilder()
	builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
	builder.loadOutcomes[types.WriterNeo4j] = outcome.Success(clients.LoadResult{JobID: "N1"})
	builder.metadata = outcome.Success(clients.ArtifactMetadata{GraphType: types.GraphTypeDirected})
	miner := &mockMiner{out: outcome.Success(clients.MineResult{
		Motifs:     motifs(),
		Statistics: json.RawMessage(`{}`),
	})}

	in := validInput()
	in.Mining.GraphType = ""

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	c.Run(context.Background(), in)

	assert.Equal(t, 1, builder.metadataCalls)
	assert.Equal(t, types.GraphTypeDirected, miner.gotCfg.GraphType)
}

func TestRun_ExplicitGraphTypeSkipsMetadata(t *testing.T) {
	builder := newMockBuilder()
	builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
	builder.loadOutcomes[types.WriterNeo4j] = outcome.Success(clients.LoadResult{JobID: "N1"})
	miner := &mockMiner{out: outcome.Success(clients.MineResult{
		Motifs:     motifs(),
		Statistics: json.RawMessage(`{}`),
	})}

	in := validInput()
	in.Mining.GraphType = types.GraphTypeUndirected

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	c.Run(context.Background(), in)

	assert.Equal(t, 0, builder.metadataCalls)
	assert.Equal(t, types.GraphTypeUndirected, miner.gotCfg.GraphType)
}

func TestRun_MetadataFailureFailsMiningBranchOnly(t *testing.T) {
	builder := newMockBuilder()
	builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
	builder.loadOutcomes[types.WriterNeo4j] = outcome.Success(clients.LoadResult{JobID: "N1"})
	builder.metadata = outcome.Failure[clients.ArtifactMetadata](outcome.KindRemote, "metadata unavailable")
	miner := &mockMiner{}

	in := validInput()
	in.Mining.GraphType = ""

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	run := c.Run(context.Background(), in)

	assert.Equal(t, types.StatusPartialFailure, run.Status)
	assert.Equal(t, "N1", run.Stage2JobID)
	assert.Equal(t, 0, miner.calls)
	assert.Contains(t, run.Error.Message, "mining")
}

func TestRun_FreshRunIDPerInvocation(t *testing.T) {
	builder := newMockBuilder()
	builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
	builder.loadOutcomes[types.WriterNeo4j] = outcome.Success(clients.LoadResult{JobID: "N1"})
	miner := &mockMiner{out: outcome.Success(clients.MineResult{Motifs: motifs(), Statistics: json.RawMessage(`{}`)})}

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	first := c.Run(context.Background(), validInput())
	second := c.Run(context.Background(), validInput())
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_DefaultsTenantAndSession(t *testing.T) {
	builder := newMockBuilder()
	builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
	builder.loadOutcomes[types.WriterNeo4j] = outcome.Success(clients.LoadResult{JobID: "N1"})
	miner := &mockMiner{out: outcome.Success(clients.MineResult{Motifs: motifs(), Statistics: json.RawMessage(`{}`)})}

	in := validInput()
	in.TenantID = ""
	in.SessionID = ""

	c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
	run := c.Run(context.Background(), in)

	assert.Equal(t, "default", run.TenantID)
	assert.NotEmpty(t, run.SessionID)
}

func TestRun_ReleasesArenaOnSuccessAndFailure(t *testing.T) {
	tests := []struct {
		name     string
		stage1OK bool
	}{
		{"success path", true},
		{"early failure path", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := newMockBuilder()
			if tt.stage1OK {
				builder.loadOutcomes[types.WriterNetworkX] = outcome.Success(clients.LoadResult{JobID: "J1"})
				builder.loadOutcomes[types.WriterNeo4j] = outcome.Success(clients.LoadResult{JobID: "N1"})
			} else {
				builder.loadOutcomes[types.WriterNetworkX] = outcome.Failure[clients.LoadResult](outcome.KindRemote, "down")
			}
			miner := &mockMiner{out: outcome.Success(clients.MineResult{Motifs: motifs(), Statistics: json.RawMessage(`{}`)})}

			arena, err := artifacts.NewArena(t.TempDir(), "run")
			require.NoError(t, err)
			in := validInput()
			in.Arena = arena

			c := newTestCoordinator(builder, miner, &mockAnnotator{}, &mockProber{})
			c.Run(context.Background(), in)

			_, statErr := os.Stat(arena.Dir())
			assert.True(t, os.IsNotExist(statErr), "arena must be released on every exit path")
		})
	}
}

func TestAnnotate_NotReadyShortCircuits(t *testing.T) {
	// Scenario: the status endpoint still reports processing; the
	// annotation adapter must never be invoked.
	annotator := &mockAnnotator{out: outcome.Success(json.RawMessage(`{}`))}
	prober := &mockProber{ready: false}

	c := newTestCoordinator(newMockBuilder(), &mockMiner{}, annotator, prober)
	result := c.Annotate(context.Background(), types.MotifSelection{
		RunID:       "run-1",
		Stage2JobID: "N1",
		Motif:       json.RawMessage(`{"nodes": []}`),
	})

	assert.Equal(t, types.AnnotationFailed, result.Status)
	require.NotNil(t, result.Error)
	assert.Equal(t, outcome.KindNotReady, result.Error.Kind)
	assert.Equal(t, 1, prober.calls)
	assert.Equal(t, 0, annotator.calls)
}

func TestAnnotate_ReadyInvokesAnnotator(t *testing.T) {
	annotator := &mockAnnotator{out: outcome.Success(json.RawMessage(`{"annotations": []}`))}
	prober := &mockProber{ready: true}

	c := newTestCoordinator(newMockBuilder(), &mockMiner{}, annotator, prober)
	result := c.Annotate(context.Background(), types.MotifSelection{
		RunID:       "run-1",
		Stage2JobID: "N1",
		Motif:       json.RawMessage(`{"nodes": []}`),
	})

	assert.Equal(t, types.AnnotationSuccess, result.Status)
	assert.JSONEq(t, `{"annotations": []}`, string(result.Annotation))
	assert.Equal(t, 1, annotator.calls)
}

func TestAnnotate_AdapterFailurePropagates(t *testing.T) {
	annotator := &mockAnnotator{out: outcome.Failure[json.RawMessage](outcome.KindRemote, "annotation service down")}
	prober := &mockProber{ready: true}

	c := newTestCoordinator(newMockBuilder(), &mockMiner{}, annotator, prober)
	result := c.Annotate(context.Background(), types.MotifSelection{
		RunID:       "run-1",
		Stage2JobID: "N1",
		Motif:       json.RawMessage(`{}`),
	})

	assert.Equal(t, types.AnnotationFailed, result.Status)
	assert.Equal(t, outcome.KindRemote, result.Error.Kind)
}

func TestAnnotate_MissingFieldsRejectedBeforeProbe(t *testing.T) {
	prober := &mockProber{ready: true}
	annotator := &mockAnnotator{}

	c := newTestCoordinator(newMockBuilder(), &mockMiner{}, annotator, prober)
	result := c.Annotate(context.Background(), types.MotifSelection{})

	assert.Equal(t, types.AnnotationFailed, result.Status)
	assert.Equal(t, outcome.KindValidation, result.Error.Kind)
	assert.Equal(t, 0, prober.calls)
	assert.Equal(t, 0, annotator.calls)
}
