package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report store reachability and cache row counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Ping(ctx); err != nil {
			return err
		}
		enrichments, analyses, err := st.Counts(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"driver":      cfg.Store.Driver,
			"enrichments": enrichments,
			"analyses":    analyses,
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
