package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brightpath-abroad/counsel-engine/internal/analysis"
	"github.com/brightpath-abroad/counsel-engine/internal/llm"
)

var (
	analyzeProfileFile string
	analyzeTargetsFile string
	analyzeProvider    string
	analyzeModel       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <user-id> [university-id] [name] [country]",
	Short: "Analyse university fit for an applicant",
	Long:  "Looks up the analysis cache for the applicant and fills misses with a model call. Without --profile the applicant is treated as profileless and receives neutral placeholders. With --targets, reads a YAML list of {university_id, name, country} entries and analyses them with a single batched call.",
	Args:  cobra.RangeArgs(1, 4),
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

		sub := analysis.Subject{ID: args[0]}
		if analyzeProfileFile != "" {
			raw, err := os.ReadFile(analyzeProfileFile)
			if err != nil {
				return eris.Wrap(err, "analyze: read profile file")
			}
			sub.ProfileSummary = strings.TrimSpace(string(raw))
		}

		cache := analysis.NewCache(st, cfg.Analysis)
		analyzer := analysis.NewAnalyzer(cache, router, cfg.Batch).
			WithCall(llm.CallConfig{Provider: analyzeProvider, Model: analyzeModel})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if analyzeTargetsFile != "" {
			targets, err := readTargetsFile(analyzeTargetsFile)
			if err != nil {
				return err
			}
			return enc.Encode(analyzer.AnalyzeAll(ctx, sub, targets))
		}

		if len(args) != 4 {
			return eris.New("analyze: expected USER_ID UNIVERSITY_ID NAME COUNTRY, or USER_ID with --targets FILE")
		}
		target := analysis.Target{UniversityID: args[1], Name: args[2], Country: args[3]}
		return enc.Encode(analyzer.Analyze(ctx, sub, target))
	},
}

func readTargetsFile(path string) ([]analysis.Target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "analyze: read targets file")
	}
	var targets []analysis.Target
	if err := yaml.Unmarshal(raw, &targets); err != nil {
		return nil, eris.Wrap(err, "analyze: parse targets file")
	}
	if len(targets) == 0 {
		return nil, eris.New("analyze: targets file holds no entries")
	}
	return targets, nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeProfileFile, "profile", "", "text file holding the applicant profile summary")
	analyzeCmd.Flags().StringVar(&analyzeTargetsFile, "targets", "", "YAML file with a list of {university_id, name, country} entries")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "", "vendor override (anthropic|perplexity)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "model override for the selected vendor")
	rootCmd.AddCommand(analyzeCmd)
}
