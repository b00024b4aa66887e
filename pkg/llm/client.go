package llm

import (
	"context"
)

// Client is the interface for embedding models
type Client interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Close() error
}

var _ Client = (*OllamaClient)(nil)

// Default Ollama settings
const (
	DefaultOllamaURL = "http://localhost:11434"
	DefaultModel     = "nomic-embed-text"
)
