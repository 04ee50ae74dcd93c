package main

import (
	"github.com/spf13/cobra"

	"github.com/brightpath-abroad/counsel-engine/internal/analysis"
)

var invalidateCmd = &cobra.Command{
	Use:   "invalidate <user-id>",
	Short: "Drop all cached analyses for an applicant",
	Long:  "Run after an applicant's profile changes: every cached analysis was derived from the old profile and must be regenerated.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cache := analysis.NewCache(st, cfg.Analysis)
		_, err = cache.InvalidateAll(ctx, args[0])
		return err
	},
}

func init() {
	rootCmd.AddCommand(invalidateCmd)
}
