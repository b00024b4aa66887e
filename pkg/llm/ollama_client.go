package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/andrew/rag-loader/pkg/logging"
)

// OllamaClient generates embeddings through a local Ollama server
type OllamaClient struct {
	client    *api.Client
	modelName string
	baseURL   string
}

// NewOllamaClient creates a new client for a local Ollama server
func NewOllamaClient(modelName string, baseURL string) (*OllamaClient, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}

	// Parse the URL properly
	ollamaURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL %q: %w", baseURL, err)
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return &OllamaClient{
		client:    api.NewClient(ollamaURL, httpClient),
		modelName: modelName,
		baseURL:   baseURL,
	}, nil
}

// Model returns the embedding model name
func (c *OllamaClient) Model() string {
	return c.modelName
}

// Ping verifies the Ollama server is running
func (c *OllamaClient) Ping(ctx context.Context) error {
	logging.Debugf("🔄 Connecting to Ollama server at %s", c.baseURL)
	if err := c.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("cannot connect to Ollama server at %s: %w", c.baseURL, err)
	}
	logging.Debugf("✅ Successfully connected to Ollama server")
	return nil
}

// EmbedText generates a vector embedding for the given text
func (c *OllamaClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	req := &api.EmbeddingRequest{
		Model:  c.modelName,
		Prompt: text,
	}

	resp, err := c.client.Embeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("model %s returned an empty embedding", c.modelName)
	}

	// Qdrant stores float32 vectors
	vector := make([]float32, len(resp.Embedding))
	for i, val := range resp.Embedding {
		vector[i] = float32(val)
	}
	return vector, nil
}

// Close cleans up any resources
func (c *OllamaClient) Close() error {
	// No cleanup needed for HTTP client
	return nil
}
