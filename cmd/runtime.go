package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sheetwise/sheetwise/internal/ai"
	cfgpkg "github.com/sheetwise/sheetwise/internal/config"
	"github.com/sheetwise/sheetwise/internal/retrieval"
)

type runtimeOptions struct {
	ProviderFlag string
	OllamaHost   string
}

// buildRuntime resolves the provider and constructs its runtime from
// config plus overrides. Named remote providers all route via OpenRouter.
func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && cfg != nil && cfg.Provider != "" {
		providerName = strings.ToLower(cfg.Provider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenRouter
	}
	switch providerName {
	case "local", "ollama":
		providerName = ai.ProviderOllama
	case "openai", "anthropic", "google":
		providerName = ai.ProviderOpenRouter
	}

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" && cfg != nil && cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKey,
	}

	if providerName == ai.ProviderOllama {
		host := strings.TrimSpace(opts.OllamaHost)
		if host == "" {
			host = os.Getenv("SHEETWISE_OLLAMA_HOST")
		}
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		if host == "" {
			host = "http://127.0.0.1:11434"
		}
		rc.Host = host
		if v := os.Getenv("SHEETWISE_OLLAMA_TIMEOUT_SEC"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				rc.HTTPTimeout = time.Duration(n) * time.Second
			}
		}
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}

	client, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s", providerName)
	}
	return client, providerName, nil
}

// embedderAdapter adapts ai.Client to retrieval.Embedder with a fixed model name.
type embedderAdapter struct {
	c     *ai.Client
	model string
}

func (e embedderAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.c.Embed(ctx, e.model, texts)
}

// embedFunc adapts a function to retrieval.Embedder.
type embedFunc func(context.Context, []string) ([][]float32, error)

func (f embedFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

// buildEmbedder returns an embedder for the configured embedding
// provider and model, or nil when no API key or host is usable.
func buildEmbedder(cfg *cfgpkg.Global, ollamaHost string) (retrieval.Embedder, string, string) {
	provider := ai.ProviderOpenRouter
	model := "openai/text-embedding-3-small"
	if cfg != nil {
		if cfg.EmbeddingProvider != "" {
			provider = strings.ToLower(cfg.EmbeddingProvider)
		}
		if cfg.EmbeddingModel != "" {
			model = cfg.EmbeddingModel
		}
	}
	timeout := 60 * time.Second
	if cfg != nil && cfg.HTTPTimeoutSec > 0 {
		timeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
	}

	if provider == ai.ProviderOllama || provider == "local" {
		host := strings.TrimSpace(ollamaHost)
		if host == "" {
			host = os.Getenv("SHEETWISE_OLLAMA_HOST")
		}
		if host == "" && cfg != nil && cfg.OllamaHost != "" {
			host = cfg.OllamaHost
		}
		client := ai.NewOllamaEmbClient(host, timeout)
		return embedFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
			return client.Embed(ctx, model, texts)
		}), ai.ProviderOllama, model
	}

	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" && cfg != nil && cfg.APIKey != "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		return nil, provider, model
	}
	client := ai.NewClient(apiKey, timeout, 3, 500*time.Millisecond, 4*time.Second)
	return embedderAdapter{c: client, model: model}, provider, model
}

// friendlyAIError rewrites provider errors with actionable hints.
func friendlyAIError(err error, providerName, model string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running (see https://ollama.com) and host is correct. You can set SHEETWISE_OLLAMA_HOST or config 'ollama_host'. Detail: %w", unreach.Host, err)
		}
		return fmt.Errorf("endpoint unreachable. Check your network and provider settings: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set OPENROUTER_API_KEY or add api_key in config (~/.sheetwise/config.yaml): %w", err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited by provider, please retry: %w", err)
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("local model not available (%s). Install it with 'ollama pull %s' or choose another model. %w", model, model, err)
		}
		return fmt.Errorf("model not found (%s). Verify the model name or run 'sheetwise models show': %w", model, err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request invalid. Try a shorter instruction or a smaller sample: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	}
	return err
}
