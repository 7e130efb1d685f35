// Package config loads CLI configuration from file, environment, and
// defaults via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Provider string `mapstructure:"provider" yaml:"provider"`

	// Model routing: simple instructions go to the cheap model, complex
	// ones to the capable model.
	SimpleModel        string  `mapstructure:"simple_model" yaml:"simple_model"`
	SimpleMaxTokens    int     `mapstructure:"simple_max_tokens" yaml:"simple_max_tokens"`
	SimpleTemperature  float64 `mapstructure:"simple_temperature" yaml:"simple_temperature"`
	ComplexModel       string  `mapstructure:"complex_model" yaml:"complex_model"`
	ComplexMaxTokens   int     `mapstructure:"complex_max_tokens" yaml:"complex_max_tokens"`
	ComplexTemperature float64 `mapstructure:"complex_temperature" yaml:"complex_temperature"`
	ClassifierModel    string  `mapstructure:"classifier_model" yaml:"classifier_model"`

	// Sampling
	SampleMaxRows int `mapstructure:"sample_max_rows" yaml:"sample_max_rows"`
	SampleMinRows int `mapstructure:"sample_min_rows" yaml:"sample_min_rows"`
	SampleCellCap int `mapstructure:"sample_cell_cap" yaml:"sample_cell_cap"`

	// Few-shot example retrieval
	EmbeddingModel    string  `mapstructure:"embedding_model" yaml:"embedding_model"`
	EmbeddingProvider string  `mapstructure:"embedding_provider" yaml:"embedding_provider"`
	RetrievalTopK     int     `mapstructure:"retrieval_top_k" yaml:"retrieval_top_k"`
	RetrievalMinScore float64 `mapstructure:"retrieval_min_score" yaml:"retrieval_min_score"`
	ExamplesDir       string  `mapstructure:"examples_dir" yaml:"examples_dir"`

	// Execution
	ScriptTimeoutSec int `mapstructure:"script_timeout_sec" yaml:"script_timeout_sec"`
	PlanTimeoutSec   int `mapstructure:"plan_timeout_sec" yaml:"plan_timeout_sec"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.sheetwise/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".sheetwise")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SHEETWISE")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("provider", "openrouter")
	v.SetDefault("simple_model", "openai/gpt-4o-mini")
	v.SetDefault("simple_max_tokens", 2048)
	v.SetDefault("simple_temperature", 0.0)
	v.SetDefault("complex_model", "openai/gpt-4o")
	v.SetDefault("complex_max_tokens", 4096)
	v.SetDefault("complex_temperature", 0.2)
	v.SetDefault("classifier_model", "openai/gpt-4o-mini")
	// Sampling defaults
	v.SetDefault("sample_max_rows", 60)
	v.SetDefault("sample_min_rows", 10)
	v.SetDefault("sample_cell_cap", 300)
	// Retrieval defaults
	v.SetDefault("embedding_model", "openai/text-embedding-3-small")
	v.SetDefault("embedding_provider", "openrouter")
	v.SetDefault("retrieval_top_k", 4)
	v.SetDefault("retrieval_min_score", 0.0)
	// Execution defaults
	v.SetDefault("script_timeout_sec", 5)
	v.SetDefault("plan_timeout_sec", 90)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 60)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, ".sheetwise")
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve examples_dir default: ~/.sheetwise/examples
	if c.ExamplesDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		c.ExamplesDir = filepath.Join(home, ".sheetwise", "examples")
	}
	return &c, nil
}
