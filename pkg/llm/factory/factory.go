package factory

import (
	"fmt"

	"patient-sim-be/pkg/llm"
	"patient-sim-be/pkg/llm/ollama"
	"patient-sim-be/pkg/llm/openai"
)

// NewLLMProvider selects the configured backend. "openai" is the default
// in production; "ollama" keeps local development free of API keys.
func NewLLMProvider(providerType, modelName, apiKey, baseURL string) (llm.LLMProvider, error) {
	switch providerType {
	case "openai":
		return openai.NewOpenAIProvider(apiKey, modelName, "")
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
