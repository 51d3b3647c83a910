package main

import (
	"context"
	"fmt"

	"github.com/daniel/graph-integrator/internal/clients"
	"github.com/daniel/graph-integrator/internal/config"
	"github.com/daniel/graph-integrator/internal/db"
	"github.com/daniel/graph-integrator/internal/pipeline"
	"github.com/daniel/graph-integrator/internal/readiness"
)

// buildCoordinator constructs the downstream adapters and the coordinator
// from configuration. The returned cleanup closes the optional database.
func buildCoordinator(ctx context.Context, cfg *config.Config) (*pipeline.Coordinator, *clients.BuilderClient, func(), error) {
	builder := clients.NewBuilderClient(cfg.BuilderURL, cfg.SharedOutputPath, cfg.BuilderTimeout)
	miner := clients.NewMinerClient(cfg.MinerURL, cfg.MinerTimeout)
	annotator := clients.NewAnnotationClient(cfg.AnnotationURL, cfg.AnnotationTimeout)
	prober := readiness.NewProber(builder, readiness.DefaultProbeTimeout)

	cleanup := func() {}
	var opts []pipeline.Option
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			// Persistence is optional; the pipeline runs without it.
			fmt.Printf("Warning: failed to connect to database: %v\n", err)
			fmt.Printf("Continuing without run persistence...\n")
		} else {
			if err := database.EnsureSchema(ctx); err != nil {
				database.Close()
				return nil, nil, nil, err
			}
			opts = append(opts, pipeline.WithRunStore(database))
			cleanup = database.Close
		}
	}

	coordinator := pipeline.New(builder, miner, annotator, prober, opts...)
	return coordinator, builder, cleanup, nil
}
