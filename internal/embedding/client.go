package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client generates embeddings through an OpenAI-compatible /embeddings API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	batchSize  int
}

// ClientConfig holds embedding client configuration.
type ClientConfig struct {
	APIKey    string
	Model     string // e.g., "sentence-transformers/all-minilm-l6-v2"
	BaseURL   string // Default: https://openrouter.ai/api/v1
	Dimension int
	BatchSize int
	Timeout   time.Duration
}

// NewClient creates a new embedding client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		batchSize:  cfg.BatchSize,
	}, nil
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Model string          `json:"model"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Embed generates normalized embeddings for the given texts, in batches.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	jsonBody, err := json.Marshal(embeddingRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "Medicine Finder")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp embeddingResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("API error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			continue
		}
		if c.dimension > 0 && len(data.Embedding) != c.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, want %d", data.Index, len(data.Embedding), c.dimension)
		}
		embeddings[data.Index] = Normalize(data.Embedding)
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
	}

	return embeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (c *Client) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, c, text)
}

// Model returns the model being used.
func (c *Client) Model() string {
	return c.model
}

// Dimension returns the configured embedding dimension, 0 if unknown.
func (c *Client) Dimension() int {
	return c.dimension
}
