package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pdfchat-be/pkg/embedding"
)

const (
	DefaultBaseURL = "https://router.huggingface.co/hf-inference/models"
	DefaultModel   = "sentence-transformers/all-MiniLM-L6-v2"
)

// Provider uses the Hugging Face inference feature-extraction pipeline.
type Provider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ embedding.EmbeddingProvider = &Provider{}

type featureExtractionRequest struct {
	Inputs string `json:"inputs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewProvider(apiKey, baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	jsonData, err := json.Marshal(featureExtractionRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/pipeline/feature-extraction", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("huggingface api error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("huggingface api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	values, err := decodeVector(bodyBytes)
	if err != nil {
		return nil, err
	}

	return embedding.NormalizeVector(values), nil
}

func (p *Provider) Model() string {
	return "huggingface/" + p.model
}

// decodeVector accepts a pooled sentence vector or per-token vectors.
// Token vectors are mean pooled.
func decodeVector(body []byte) ([]float32, error) {
	var pooled []float32
	if err := json.Unmarshal(body, &pooled); err == nil {
		if len(pooled) == 0 {
			return nil, fmt.Errorf("empty embedding from huggingface api")
		}
		return pooled, nil
	}

	var tokens [][]float32
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, fmt.Errorf("empty embedding from huggingface api")
	}

	mean := make([]float32, len(tokens[0]))
	for _, tok := range tokens {
		if len(tok) != len(mean) {
			return nil, fmt.Errorf("inconsistent token vector sizes")
		}
		for i, v := range tok {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float32(len(tokens))
	}
	return mean, nil
}
