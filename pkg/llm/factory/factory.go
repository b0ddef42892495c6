package factory

import (
	"fmt"
	"strings"

	"pdfchat-be/pkg/llm"
	"pdfchat-be/pkg/llm/ollama"
	"pdfchat-be/pkg/llm/openai"
)

type Config struct {
	Provider string // "groq", "openai", "huggingface", "ollama"
	Model    string
	BaseURL  string
	APIKey   string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "groq":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GROQ_API_KEY is required for the groq provider")
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openai.GroqBaseURL
		}
		return openai.NewProvider(cfg.APIKey, baseURL, cfg.Model)
	case "openai":
		return openai.NewProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	case "huggingface":
		// the HF router speaks the OpenAI chat completions protocol
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openai.HuggingFaceRouterURL
		}
		return openai.NewProvider(cfg.APIKey, baseURL, cfg.Model)
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
