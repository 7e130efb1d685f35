package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/sheetwise/sheetwise/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Sheetwise configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		fmt.Printf("api_key: %s\n", mask(cfg.APIKey))
		fmt.Printf("provider: %s\n", cfg.Provider)
		fmt.Printf("simple_model: %s\n", cfg.SimpleModel)
		fmt.Printf("complex_model: %s\n", cfg.ComplexModel)
		fmt.Printf("classifier_model: %s\n", cfg.ClassifierModel)
		fmt.Printf("simple_max_tokens: %d\n", cfg.SimpleMaxTokens)
		fmt.Printf("complex_max_tokens: %d\n", cfg.ComplexMaxTokens)
		fmt.Printf("sample_max_rows: %d\n", cfg.SampleMaxRows)
		fmt.Printf("sample_min_rows: %d\n", cfg.SampleMinRows)
		if cfg.EmbeddingModel != "" {
			fmt.Printf("embedding_model: %s\n", cfg.EmbeddingModel)
		}
		if cfg.EmbeddingProvider != "" {
			fmt.Printf("embedding_provider: %s\n", cfg.EmbeddingProvider)
		}
		if cfg.RetrievalTopK > 0 {
			fmt.Printf("retrieval_top_k: %d\n", cfg.RetrievalTopK)
		}
		if cfg.RetrievalMinScore >= 0 {
			fmt.Printf("retrieval_min_score: %.3f\n", cfg.RetrievalMinScore)
		}
		fmt.Printf("examples_dir: %s\n", cfg.ExamplesDir)
		fmt.Printf("script_timeout_sec: %d\n", cfg.ScriptTimeoutSec)
		fmt.Printf("plan_timeout_sec: %d\n", cfg.PlanTimeoutSec)
		if cfg.OllamaHost != "" {
			fmt.Printf("ollama_host: %s\n", cfg.OllamaHost)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		switch key {
		case "api_key":
			cfg.APIKey = val
		case "provider":
			switch val {
			case "openrouter", "OpenRouter", "OPENROUTER":
				cfg.Provider = "openrouter"
			case "ollama", "local", "Ollama", "LOCAL":
				cfg.Provider = "ollama"
			default:
				return fmt.Errorf("invalid provider: %s (use openrouter or ollama)", val)
			}
		case "simple_model":
			cfg.SimpleModel = val
		case "complex_model":
			cfg.ComplexModel = val
		case "classifier_model":
			cfg.ClassifierModel = val
		case "simple_max_tokens":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for simple_max_tokens: %w", err)
			}
			cfg.SimpleMaxTokens = i
		case "complex_max_tokens":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for complex_max_tokens: %w", err)
			}
			cfg.ComplexMaxTokens = i
		case "simple_temperature":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for simple_temperature: %w", err)
			}
			cfg.SimpleTemperature = f
		case "complex_temperature":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for complex_temperature: %w", err)
			}
			cfg.ComplexTemperature = f
		case "sample_max_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for sample_max_rows: %v", val)
			}
			cfg.SampleMaxRows = i
		case "sample_min_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for sample_min_rows: %v", val)
			}
			cfg.SampleMinRows = i
		case "embedding_model":
			cfg.EmbeddingModel = val
		case "embedding_provider":
			switch val {
			case "openrouter", "OpenRouter", "OPENROUTER":
				cfg.EmbeddingProvider = "openrouter"
			case "ollama", "Ollama", "LOCAL", "local":
				cfg.EmbeddingProvider = "ollama"
			default:
				return fmt.Errorf("invalid embedding_provider: %s (use openrouter or ollama)", val)
			}
		case "retrieval_top_k":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for retrieval_top_k: %v", val)
			}
			cfg.RetrievalTopK = i
		case "retrieval_min_score":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid float for retrieval_min_score: %v", val)
			}
			cfg.RetrievalMinScore = f
		case "examples_dir":
			cfg.ExamplesDir = val
		case "script_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for script_timeout_sec: %v", val)
			}
			cfg.ScriptTimeoutSec = i
		case "plan_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for plan_timeout_sec: %v", val)
			}
			cfg.PlanTimeoutSec = i
		case "ollama_host":
			cfg.OllamaHost = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
