package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"jobpilot/internal/domain"
	"jobpilot/internal/store"
)

var (
	listStatus string
	listRegion string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leads",
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one lead in full",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status")
	listCmd.Flags().StringVar(&listRegion, "region", "", "Filter by region")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Max rows (0 = all)")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.openStore(); err != nil {
		return err
	}
	defer a.close()

	opts := store.ListOpts{Limit: listLimit}
	if listStatus != "" {
		if !domain.ValidStatus(domain.Status(listStatus)) {
			return fmt.Errorf("unknown status %q", listStatus)
		}
		opts.Status = domain.Status(listStatus)
	}
	if listRegion != "" {
		if !domain.ValidRegion(domain.Region(listRegion)) {
			return fmt.Errorf("unknown region %q", listRegion)
		}
		opts.Region = domain.Region(listRegion)
	}

	leads, err := a.DB.List(cmd.Context(), opts)
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Score", "Title", "Company", "Region", "Status", "Source"})
	for _, l := range leads {
		tw.AppendRow(table.Row{l.ID, l.Score, truncate(l.Title, 40), truncate(l.Company, 24), l.Region, l.Status, l.Source})
	}
	tw.Render()
	fmt.Printf("%d leads\n", len(leads))

	if listStatus == "" && listRegion == "" && listLimit == 0 {
		counts, err := a.DB.CountByStatus(cmd.Context())
		if err != nil {
			return err
		}
		printStatusCounts(counts)
	}
	return nil
}

func printStatusCounts(counts store.StatusCounts) {
	order := []domain.Status{
		domain.StatusFound, domain.StatusCoverReady, domain.StatusApplied,
		domain.StatusApplyFailed, domain.StatusInterviewing, domain.StatusRejected,
		domain.StatusOffer,
	}
	parts := make([]string, 0, len(order))
	for _, s := range order {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", s, n))
		}
	}
	if len(parts) > 0 {
		fmt.Println(strings.Join(parts, "  "))
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid id %q", args[0])
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.openStore(); err != nil {
		return err
	}
	defer a.close()

	l, err := a.DB.Get(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Printf("#%d  %s @ %s\n", l.ID, l.Title, l.Company)
	fmt.Printf("  status    : %s\n", l.Status)
	fmt.Printf("  region    : %s (%s)\n", l.Region, l.Location)
	fmt.Printf("  source    : %s\n", l.Source)
	fmt.Printf("  score     : %d\n", l.Score)
	fmt.Printf("  url       : %s\n", l.URL)
	if l.Salary != "" {
		fmt.Printf("  salary    : %s\n", l.Salary)
	}
	if l.PostedAt != "" {
		fmt.Printf("  posted    : %s\n", l.PostedAt)
	}
	fmt.Printf("  found     : %s\n", l.FoundAt.Format("2006-01-02 15:04"))
	if l.CoverLetterPath != "" {
		fmt.Printf("  cover     : %s\n", l.CoverLetterPath)
	}
	if l.DraftPath != "" {
		fmt.Printf("  draft     : %s\n", l.DraftPath)
	}
	if l.ApplyAttempts > 0 {
		fmt.Printf("  attempts  : %d\n", l.ApplyAttempts)
	}
	if l.LastError != "" {
		fmt.Printf("  last error: %s\n", l.LastError)
	}
	if l.Notes != "" {
		fmt.Printf("  notes     : %s\n", l.Notes)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
