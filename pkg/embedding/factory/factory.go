package factory

import (
	"fmt"
	"strings"

	"pdfchat-be/pkg/embedding"
	"pdfchat-be/pkg/embedding/huggingface"
)

type Config struct {
	Provider string // "huggingface", "ollama", "openai"
	Model    string
	BaseURL  string
	APIKey   string
}

func NewEmbeddingProvider(cfg Config) (embedding.EmbeddingProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "huggingface", "":
		return huggingface.NewProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "ollama":
		return embedding.NewOllamaProvider(cfg.BaseURL, cfg.Model)
	case "openai":
		return embedding.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
