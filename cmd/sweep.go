package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brightpath-abroad/counsel-engine/internal/enrich"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired unverified enrichment records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		cache := enrich.NewCache(st, enrich.TTLFromConfig(cfg.Enrich))
		deleted, err := cache.SweepExpired(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("sweep complete", zap.Int64("deleted", deleted))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
