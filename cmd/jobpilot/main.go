// Package main is the jobpilot CLI: search job sources, generate application
// drafts, and drive quick-apply submissions from one lead store.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jobpilot",
	Short: "Job lead pipeline and quick-apply automation",
	Long: `jobpilot aggregates job postings from multiple sources into a deduplicated
lead store, generates cover letters and application drafts, and submits
quick-apply applications through an authenticated browser session.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
