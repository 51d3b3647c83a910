// Package main provides the entry point for the graph mining integration
// service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "integration_service",
	Short: "Graph mining integration service",
	Long:  "Coordinates the graph-construction, motif-mining, and annotation services into one pipeline, exposed over REST and as one-shot CLI commands.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
