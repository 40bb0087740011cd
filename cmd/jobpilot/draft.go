package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"jobpilot/internal/draft"
)

var (
	draftID  int64
	draftAll bool
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Generate cover letter and application draft files",
	RunE:  runDraft,
}

func init() {
	draftCmd.Flags().Int64Var(&draftID, "id", 0, "Draft a single lead by id")
	draftCmd.Flags().BoolVar(&draftAll, "all", false, "Draft every lead at status found")
	draftCmd.MarkFlagsOneRequired("id", "all")
	draftCmd.MarkFlagsMutuallyExclusive("id", "all")
	rootCmd.AddCommand(draftCmd)
}

func runDraft(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	if err := a.openStore(); err != nil {
		return err
	}
	defer a.close()

	g := &draft.Generator{
		Store:     a.DB,
		Profile:   a.Cfg.Profile,
		CoversDir: filepath.Join(a.DataDir, "covers"),
		DraftsDir: filepath.Join(a.DataDir, "drafts"),
	}

	var res draft.Result
	if draftAll {
		res, err = g.GenerateAll(cmd.Context())
	} else {
		res, err = g.GenerateOne(cmd.Context(), draftID)
	}
	if err != nil {
		return err
	}

	fmt.Printf("drafts: %d generated, %d errors\n", res.Generated, res.Errors)
	return nil
}
