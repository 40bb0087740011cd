package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"jobpilot/internal/draft"
	"jobpilot/internal/runlog"
	"jobpilot/internal/submit"
)

var (
	cycleMax    int
	cycleDryRun bool
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a full daily cycle: search, draft, submit",
	RunE:  runCycle,
}

func init() {
	cycleCmd.Flags().IntVar(&cycleMax, "max", 0, "Hard cap on submissions (0 = config default)")
	cycleCmd.Flags().BoolVar(&cycleDryRun, "dry-run", false, "Stop every submission at the review step")
	rootCmd.AddCommand(cycleCmd)
}

// runCycle chains the three phases and always ends with the cumulative
// summary line, even when a phase partially failed.
func runCycle(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.openStore(); err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Hour)
	defer cancel()

	var cs runlog.CycleSummary

	regions, err := a.regionsArg(nil)
	if err != nil {
		return err
	}
	agg, err := a.runner().Run(ctx, regions, "")
	if err != nil {
		return err
	}
	cs.NewLeads, cs.Duplicates, cs.Filtered, cs.SourceErrs =
		agg.New, agg.Duplicates, agg.Filtered, len(agg.Errors)
	snapshotLeads(ctx, a)

	g := &draft.Generator{
		Store:     a.DB,
		Profile:   a.Cfg.Profile,
		CoversDir: filepath.Join(a.DataDir, "covers"),
		DraftsDir: filepath.Join(a.DataDir, "drafts"),
	}
	dres, err := g.GenerateAll(ctx)
	if err != nil {
		return err
	}
	cs.Drafts = dres.Generated

	sub, err := submitRun(ctx, a, submit.Options{Max: cycleMax, DryRun: cycleDryRun})
	if err != nil && !errors.Is(err, submit.ErrSessionExpired) {
		return err
	}
	if errors.Is(err, submit.ErrSessionExpired) {
		log.Printf("[cycle] submissions skipped: %v", err)
	}
	cs.Applied, cs.DryRuns, cs.Skipped, cs.Failures =
		sub.Applied, sub.DryRuns, sub.Skipped, sub.Failed

	fmt.Println(a.RunLog.Cycle(cs))
	return nil
}
