package types

import (
	"github.com/go-playground/validator/v10"
)

// GraphType identifies the structure of a generated graph artifact.
type GraphType string

const (
	GraphTypeDirected   GraphType = "directed"
	GraphTypeUndirected GraphType = "undirected"
)

// SearchStrategy selects the miner's pattern search algorithm.
type SearchStrategy string

const (
	SearchGreedy SearchStrategy = "greedy"
	SearchMCTS   SearchStrategy = "mcts"
)

// SamplingMethod selects how the miner samples neighborhoods.
type SamplingMethod string

const (
	SamplingTree   SamplingMethod = "tree"
	SamplingRadial SamplingMethod = "radial"
)

// OutputFormat selects the miner's result serialization.
type OutputFormat string

const (
	OutputJSON    OutputFormat = "json"
	OutputGraphML OutputFormat = "graphml"
)

// WriterKind selects which graph representation the builder produces.
type WriterKind string

const (
	// WriterNetworkX is the primary artifact: a serialized graph file on
	// shared storage, consumed by the miner.
	WriterNetworkX WriterKind = "networkx"
	// WriterNeo4j is the secondary artifact: a graph-database load job,
	// consumed by the annotation service.
	WriterNeo4j WriterKind = "neo4j"
)

// MiningConfig holds the miner parameters for one pipeline run.
// GraphType may be left empty; the coordinator then derives it from the
// builder's artifact metadata before dispatching the mining call.
type MiningConfig struct {
	MinPatternSize      int            `json:"min_pattern_size" validate:"gt=0"`
	MaxPatternSize      int            `json:"max_pattern_size" validate:"gt=0,gtefield=MinPatternSize"`
	MinNeighborhoodSize int            `json:"min_neighborhood_size" validate:"gt=0"`
	MaxNeighborhoodSize int            `json:"max_neighborhood_size" validate:"gt=0,gtefield=MinNeighborhoodSize"`
	NNeighborhoods      int            `json:"n_neighborhoods" validate:"gt=0"`
	NTrials             int            `json:"n_trials" validate:"gt=0"`
	GraphType           GraphType      `json:"graph_type,omitempty" validate:"omitempty,oneof=directed undirected"`
	SearchStrategy      SearchStrategy `json:"search_strategy" validate:"oneof=greedy mcts"`
	SamplingMethod      SamplingMethod `json:"sampling_method" validate:"oneof=tree radial"`
	OutputFormat        OutputFormat   `json:"output_format" validate:"oneof=json graphml"`
}

// DefaultMiningConfig returns the miner parameters used when the caller
// supplies none.
func DefaultMiningConfig() MiningConfig {
	return MiningConfig{
		MinPatternSize:      3,
		MaxPatternSize:      8,
		MinNeighborhoodSize: 10,
		MaxNeighborhoodSize: 30,
		NNeighborhoods:      64,
		NTrials:             1000,
		SearchStrategy:      SearchGreedy,
		SamplingMethod:      SamplingTree,
		OutputFormat:        OutputJSON,
	}
}

// Validate validates the MiningConfig using the validator.
// Inverted bound pairs are a request-validation failure and must be caught
// here, before any network call is made.
func (c *MiningConfig) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// MiningRequest names a previously generated artifact and the parameters to
// mine it with.
type MiningRequest struct {
	DownstreamArtifactID string       `json:"artifact_id" validate:"required"`
	Config               MiningConfig `json:"config"`
}

// Validate validates the MiningRequest using the validator.
func (r *MiningRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	return r.Config.Validate()
}
