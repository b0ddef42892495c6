// Package openai talks to any OpenAI-compatible chat completions endpoint.
// Groq is the default deployment target.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pdfchat-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	GroqBaseURL          = "https://api.groq.com/openai/v1"
	HuggingFaceRouterURL = "https://router.huggingface.co/v1"
	DefaultGroqModel     = "llama-3.3-70b-versatile"
)

type Provider struct {
	client *goopenai.Client
	model  string
}

// Ensure Provider implements LLMProvider
var _ llm.LLMProvider = &Provider{}

// NewProvider creates a provider. An empty baseURL keeps the client default (api.openai.com).
func NewProvider(apiKey, baseURL, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	if model == "" {
		model = DefaultGroqModel
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return &Provider{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// NewGroqProvider points the client at Groq's OpenAI-compatible API.
func NewGroqProvider(apiKey, model string) (*Provider, error) {
	return NewProvider(apiKey, GroqBaseURL, model)
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{
		Model:       p.model,
		Temperature: 0.7,
		MaxTokens:   1000,
	}, opts...)

	messages := make([]goopenai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       options.Model,
		Messages:    messages,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

func (p *Provider) Model() string {
	return p.model
}
