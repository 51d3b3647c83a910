package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daniel/graph-integrator/internal/config"
	"github.com/daniel/graph-integrator/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the pipeline execution, annotation, and job-status endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	coordinator, builder, cleanup, err := buildCoordinator(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to wire pipeline: %w", err)
	}
	defer cleanup()

	srv := server.New(cfg, coordinator, builder)
	return srv.Start()
}
