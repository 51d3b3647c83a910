package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daniel/graph-integrator/internal/config"
	"github.com/daniel/graph-integrator/internal/observability"
	"github.com/daniel/graph-integrator/internal/pipeline"
	"github.com/daniel/graph-integrator/internal/schemas"
	"github.com/daniel/graph-integrator/internal/types"
)

var (
	runConfigPath  string
	runSchemaPath  string
	runTenantID    string
	runSessionID   string
	runMinerConfig string
)

var runCmd = &cobra.Command{
	Use:   "run [csv files...]",
	Short: "Execute the mining pipeline once",
	Long:  `Upload the given CSV files to the graph builder, mine motifs from the primary graph, and print the combined result.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to the builder config document (required)")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "", "Path to the graph schema document (required)")
	runCmd.Flags().StringVar(&runTenantID, "tenant", "default", "Tenant identifier")
	runCmd.Flags().StringVar(&runSessionID, "session", "", "Session correlation token (generated when empty)")
	runCmd.Flags().StringVar(&runMinerConfig, "miner-config", "", "Path to a miner parameters JSON file")
	_ = runCmd.MarkFlagRequired("config")
	_ = runCmd.MarkFlagRequired("schema")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cfgDoc, err := os.ReadFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("failed to read config document: %w", err)
	}
	schemaDoc, err := os.ReadFile(runSchemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema document: %w", err)
	}
	if err := schemas.ValidateGraphSchema(string(schemaDoc)); err != nil {
		return err
	}

	mining := types.DefaultMiningConfig()
	if runMinerConfig != "" {
		raw, err := os.ReadFile(runMinerConfig)
		if err != nil {
			return fmt.Errorf("failed to read miner parameters: %w", err)
		}
		if err := json.Unmarshal(raw, &mining); err != nil {
			return fmt.Errorf("failed to parse miner parameters: %w", err)
		}
	}

	ctx := context.Background()
	coordinator, _, cleanup, err := buildCoordinator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to wire pipeline: %w", err)
	}
	defer cleanup()

	run := coordinator.Run(ctx, pipeline.RunInput{
		CSVPaths:   args,
		Config:     string(cfgDoc),
		SchemaJSON: string(schemaDoc),
		TenantID:   runTenantID,
		SessionID:  runSessionID,
		Mining:     mining,
	})

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintRun(run)

	if run.Status == types.StatusFailed {
		return fmt.Errorf("pipeline run %s failed: %s", run.RunID, run.Error.Message)
	}
	return nil
}
