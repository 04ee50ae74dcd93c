package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brightpath-abroad/counsel-engine/internal/enrich"
	"github.com/brightpath-abroad/counsel-engine/internal/llm"
)

var (
	enrichBatchFile string
	enrichProvider  string
	enrichModel     string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [name] [country]",
	Short: "Enrich one university, or a batch from a YAML file",
	Long:  "Looks up the enrichment cache and fills misses with a model call. With --batch, reads a YAML list of {name, country} entries and enriches them with a single batched call.",
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		router, err := buildRouter(cfg.Providers)
		if err != nil {
			return err
		}

		cache := enrich.NewCache(st, enrich.TTLFromConfig(cfg.Enrich))
		enricher := enrich.NewEnricher(cache, router, cfg.Batch).
			WithCall(llm.CallConfig{Provider: enrichProvider, Model: enrichModel})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if enrichBatchFile != "" {
			entities, err := readBatchFile(enrichBatchFile)
			if err != nil {
				return err
			}
			return enc.Encode(enricher.EnrichAll(ctx, entities))
		}

		if len(args) != 2 {
			return eris.New("enrich: expected NAME and COUNTRY, or --batch FILE")
		}
		return enc.Encode(enricher.Enrich(ctx, args[0], args[1]))
	},
}

func readBatchFile(path string) ([]enrich.Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: read batch file")
	}
	var entities []enrich.Descriptor
	if err := yaml.Unmarshal(raw, &entities); err != nil {
		return nil, eris.Wrap(err, "enrich: parse batch file")
	}
	if len(entities) == 0 {
		return nil, eris.New("enrich: batch file holds no entries")
	}
	return entities, nil
}

func init() {
	enrichCmd.Flags().StringVar(&enrichBatchFile, "batch", "", "YAML file with a list of {name, country} entries")
	enrichCmd.Flags().StringVar(&enrichProvider, "provider", "", "vendor override (anthropic|perplexity)")
	enrichCmd.Flags().StringVar(&enrichModel, "model", "", "model override for the selected vendor")
	rootCmd.AddCommand(enrichCmd)
}
