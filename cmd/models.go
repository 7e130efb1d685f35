package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sheetwise/sheetwise/internal/ai"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog, pricing, and tier recommendations",
	Example: `  sheetwise models show
  sheetwise models tiers
  sheetwise models tiers --provider ollama
  sheetwise models sync --file ./models.json --merge`,
}

var modelsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current model catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := ai.Catalog()
		// pretty-print deterministic order
		keys := make([]string, 0, len(cat))
		for k := range cat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		m := make(map[string]ai.ModelInfo, len(keys))
		for _, k := range keys {
			m[k] = cat[k]
		}
		return enc.Encode(m)
	},
}

var tiersProvider string

var modelsTiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Show the recommended model for each complexity tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := tiersProvider
		if provider == "" && cfg != nil && cfg.Provider != "" {
			provider = cfg.Provider
		}
		if provider == "" {
			provider = ai.ProviderOpenRouter
		}
		for _, tier := range []string{ai.TierSimple, ai.TierComplex} {
			name, ok := ai.RecommendModel(provider, tier)
			if !ok {
				return fmt.Errorf("no recommendation for provider %s (try openrouter|openai|anthropic|google|ollama)", provider)
			}
			line := fmt.Sprintf("%s: %s", tier, name)
			if mi, ok := ai.LookupModel(name); ok {
				line += fmt.Sprintf("  (ctx ~%d tokens, $%.4f/$%.4f per 1K in/out)", mi.ContextTokens, mi.InputPerK, mi.OutputPerK)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var (
	syncPath  string
	syncMerge bool
)

var modelsSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load model catalog/pricing from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncPath == "" {
			return fmt.Errorf("--file is required")
		}
		m, err := ai.LoadCatalogFromJSON(syncPath)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		if syncMerge {
			ai.MergeCatalog(m)
			fmt.Println("Merged model catalog from file")
		} else {
			ai.OverrideCatalog(m)
			fmt.Println("Replaced model catalog from file")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsShowCmd)
	modelsCmd.AddCommand(modelsTiersCmd)
	modelsCmd.AddCommand(modelsSyncCmd)
	modelsTiersCmd.Flags().StringVar(&tiersProvider, "provider", "", "provider for recommendations (default from config)")
	modelsSyncCmd.Flags().StringVar(&syncPath, "file", "", "path to models JSON file")
	modelsSyncCmd.Flags().BoolVar(&syncMerge, "merge", false, "merge into existing catalog instead of replacing")
}
