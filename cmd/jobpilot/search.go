package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
)

var (
	searchRegions []string
	searchRole    string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Query all enabled sources and store new leads",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringArrayVarP(&searchRegions, "region", "r", nil, "Region to search (repeatable, defaults to configured regions)")
	searchCmd.Flags().StringVar(&searchRole, "role", "", "Restrict this run to a single role query")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.openStore(); err != nil {
		return err
	}
	defer a.close()

	regions, err := a.regionsArg(searchRegions)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Minute)
	defer cancel()

	sum, err := a.runner().Run(ctx, regions, searchRole)
	if err != nil {
		return err
	}

	if path := snapshotLeads(ctx, a); path != "" {
		log.Printf("[search] snapshot written: %s", path)
	}

	fmt.Printf("search done: %d new, %d duplicates, %d filtered, %d source errors\n",
		sum.New, sum.Duplicates, sum.Filtered, len(sum.Errors))
	for _, e := range sum.Errors {
		fmt.Printf("  source %s failed: %s\n", e.Source, e.Err)
	}
	return nil
}
