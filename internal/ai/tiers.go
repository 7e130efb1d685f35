package ai

// Tier identifiers for model routing. Simple instructions go to a
// cost-efficient model, complex ones to a higher-capability model.
const (
	TierSimple  = "simple"
	TierComplex = "complex"
)

// RecommendModel returns a recommended model name for a provider and tier.
// If provider is empty, defaults to "openrouter".
func RecommendModel(provider, tier string) (string, bool) {
	if provider == "" {
		provider = ProviderOpenRouter
	}
	switch tier {
	case TierSimple:
		switch provider {
		case ProviderOpenRouter:
			return "openai/gpt-4o-mini", true
		case ProviderOpenAI:
			return "openai/gpt-4o-mini", true
		case ProviderAnthropic:
			return "anthropic/claude-3-haiku", true
		case ProviderGoogle:
			return "google/gemini-1.5-flash", true
		case ProviderOllama, ProviderLocal:
			return "llama3.1:8b-instruct", true
		}
	case TierComplex:
		switch provider {
		case ProviderOpenRouter, ProviderOpenAI:
			return "openai/gpt-4o", true
		case ProviderAnthropic:
			return "anthropic/claude-3.5-sonnet", true
		case ProviderGoogle:
			return "google/gemini-1.5-pro", true
		case ProviderOllama, ProviderLocal:
			return "llama3.1:70b-instruct", true
		}
	}
	return "", false
}
