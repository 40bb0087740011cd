package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"jobpilot/internal/answers"
	"jobpilot/internal/domain"
	"jobpilot/internal/secrets"
	"jobpilot/internal/submit"
)

var (
	submitRegion string
	submitMax    int
	submitDryRun bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit quick-apply applications for cover_ready leads",
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().StringVarP(&submitRegion, "region", "r", "", "Only submit leads in this region")
	submitCmd.Flags().IntVar(&submitMax, "max", 0, "Hard cap on submissions this run (0 = config default)")
	submitCmd.Flags().BoolVar(&submitDryRun, "dry-run", false, "Walk the flow and report, but never submit")
	rootCmd.AddCommand(submitCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.openStore(); err != nil {
		return err
	}
	defer a.close()

	var region domain.Region
	if submitRegion != "" {
		region = domain.Region(submitRegion)
		if !domain.ValidRegion(region) {
			return fmt.Errorf("unknown region %q", submitRegion)
		}
	}

	sum, err := submitRun(cmd.Context(), a, submit.Options{
		Region: region,
		Max:    submitMax,
		DryRun: submitDryRun,
	})
	if err != nil {
		return err
	}

	fmt.Printf("submit done: %d applied, %d dry-run, %d skipped, %d failed (of %d processed)\n",
		sum.Applied, sum.DryRuns, sum.Skipped, sum.Failed, sum.Processed)
	return nil
}

// submitRun wires the live browser driver and answer generator, then runs the
// engine. A missing or expired session token is surfaced as its own error so
// the operator knows to refresh credentials rather than chase form failures.
func submitRun(ctx context.Context, a *app, opts submit.Options) (submit.Summary, error) {
	token := secrets.Get(secrets.AccountSessionToken)

	drv, err := submit.NewBrowserDriver(ctx, a.Cfg, token)
	if err != nil {
		if errors.Is(err, submit.ErrSessionExpired) {
			return submit.Summary{}, fmt.Errorf("session token missing or expired, run `jobpilot secrets set-session`: %w", err)
		}
		return submit.Summary{}, err
	}
	defer drv.Close()

	var gen answers.Generator
	if key := secrets.Get(secrets.AccountGeminiKey); key != "" {
		g, err := answers.NewGemini(ctx, key, a.Cfg.Profile.Summary)
		if err != nil {
			log.Printf("[submit] answer generator unavailable: %v", err)
		} else {
			defer g.Close()
			gen = g
		}
	}

	eng := submit.NewEngine(a.DB, drv, answers.New(a.Cfg.Profile, gen, a.Cfg.AnswerTimeout()), a.Cfg)
	eng.OnAttempt = a.RunLog.Attempt

	sum, err := eng.Run(ctx, opts)
	if errors.Is(err, submit.ErrSessionExpired) {
		return sum, fmt.Errorf("session token missing or expired, run `jobpilot secrets set-session`: %w", err)
	}
	return sum, err
}
