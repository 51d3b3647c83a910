package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daniel/graph-integrator/internal/config"
	"github.com/daniel/graph-integrator/internal/observability"
	"github.com/daniel/graph-integrator/internal/types"
)

var (
	annotateRunID     string
	annotateJobID     string
	annotateMotifPath string
)

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Annotate a previously mined motif",
	Long:  `Check that the graph database job is ready, then send the selected motif to the annotation service and print the enrichment.`,
	RunE:  runAnnotate,
}

func init() {
	annotateCmd.Flags().StringVar(&annotateRunID, "run", "", "Pipeline run identifier (required)")
	annotateCmd.Flags().StringVar(&annotateJobID, "neo4j-job", "", "Graph database job the motif was mined against (required)")
	annotateCmd.Flags().StringVar(&annotateMotifPath, "motif", "", "Path to the selected motif JSON file (required)")
	_ = annotateCmd.MarkFlagRequired("run")
	_ = annotateCmd.MarkFlagRequired("neo4j-job")
	_ = annotateCmd.MarkFlagRequired("motif")
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	motif, err := os.ReadFile(annotateMotifPath)
	if err != nil {
		return fmt.Errorf("failed to read motif file: %w", err)
	}
	if !json.Valid(motif) {
		return fmt.Errorf("motif file %s is not valid JSON", annotateMotifPath)
	}

	ctx := context.Background()
	coordinator, _, cleanup, err := buildCoordinator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to wire pipeline: %w", err)
	}
	defer cleanup()

	result := coordinator.Annotate(ctx, types.MotifSelection{
		RunID:       annotateRunID,
		Stage2JobID: annotateJobID,
		Motif:       json.RawMessage(motif),
	})

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintAnnotation(result)

	if result.Status == types.AnnotationFailed {
		return fmt.Errorf("annotation failed: %s", result.Error.Message)
	}
	return nil
}
