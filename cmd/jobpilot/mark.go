package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"jobpilot/internal/domain"
)

var markAppliedCmd = &cobra.Command{
	Use:   "mark-applied <id>",
	Short: "Force a lead to applied (used after applying manually)",
	Args:  cobra.ExactArgs(1),
	RunE:  runMarkApplied,
}

func init() {
	rootCmd.AddCommand(markAppliedCmd)
}

func runMarkApplied(cmd *cobra.Command, args []string) error {
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

	if err := a.DB.ForceStatus(cmd.Context(), id, domain.StatusApplied, "marked applied manually"); err != nil {
		return err
	}
	fmt.Printf("lead #%d marked applied\n", id)
	return nil
}
