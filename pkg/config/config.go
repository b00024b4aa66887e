// Package config resolves rag-loader settings from defaults, an optional
// TOML file, a .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/andrew/rag-loader/pkg/llm"
)

// Config is the complete rag-loader configuration
type Config struct {
	Debug  bool         `toml:"debug"`
	Qdrant QdrantConfig `toml:"qdrant"`
	Ollama OllamaConfig `toml:"ollama"`
	Token  TokenConfig  `toml:"token"`
	Chunk  ChunkConfig  `toml:"chunk"`
}

// QdrantConfig holds the vector database settings
type QdrantConfig struct {
	URL        string `toml:"url"`
	APIKey     string `toml:"api_key"`
	Collection string `toml:"collection"`
	VectorSize int    `toml:"vector_size"`
	BatchSize  int    `toml:"batch_size"`
}

// OllamaConfig holds the embedding model settings
type OllamaConfig struct {
	URL   string `toml:"url"`
	Model string `toml:"model"`
}

// TokenConfig holds the JWT signing secret
type TokenConfig struct {
	Secret string `toml:"secret"`
}

// ChunkConfig controls directory chunking
type ChunkConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Qdrant: QdrantConfig{
			URL:        "http://localhost:6334",
			Collection: "rag",
			VectorSize: 768,
			BatchSize:  4000,
		},
		Ollama: OllamaConfig{
			URL:   llm.DefaultOllamaURL,
			Model: llm.DefaultModel,
		},
		Chunk: ChunkConfig{
			Size:    1000,
			Overlap: 100,
		},
	}
}

// Load builds the configuration. path may be empty; a missing .env is ignored.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Values already in the environment win over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Qdrant.URL, "QDRANT_URL")
	setString(&c.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&c.Qdrant.Collection, "QDRANT_COLLECTION")
	setString(&c.Token.Secret, "QDRANT_JWT_SECRET")
	setString(&c.Ollama.URL, "OLLAMA_HOST")
	setString(&c.Ollama.Model, "OLLAMA_MODEL")

	if err := setInt(&c.Qdrant.VectorSize, "QDRANT_VECTOR_SIZE"); err != nil {
		return err
	}
	return setInt(&c.Qdrant.BatchSize, "QDRANT_BATCH_SIZE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}
