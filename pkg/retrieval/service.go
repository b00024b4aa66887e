package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/andrew/rag-loader/pkg/embedding"
	"github.com/andrew/rag-loader/pkg/models"
	"github.com/andrew/rag-loader/pkg/vector"
)

// Service provides functionality for retrieving relevant documents
type Service interface {
	// SearchByText retrieves documents similar to the provided text query
	SearchByText(ctx context.Context, query string, limit int) ([]models.SearchResult, error)

	// SearchByVector retrieves documents similar to the provided vector
	SearchByVector(ctx context.Context, vector []float32, limit int) ([]models.SearchResult, error)

	// GetRetrievalContext generates a context string from search results for augmenting LLM prompts
	GetRetrievalContext(results []models.SearchResult) string
}

// Config contains configuration for a retrieval service
type Config struct {
	// Collection is the vector collection to search
	Collection string

	// MaxResults is the maximum number of results to return
	MaxResults int

	// ScoreThreshold is the minimum similarity score for results
	ScoreThreshold float32
}

// DefaultConfig returns a default configuration
func DefaultConfig(collection string) Config {
	return Config{
		Collection: collection,
		MaxResults: 10,
	}
}

// VectorService answers queries by embedding them and searching a collection
type VectorService struct {
	embedder embedding.Embedder
	searcher vector.Searcher
	config   Config
}

var _ Service = (*VectorService)(nil)

// NewVectorService creates a retrieval service over a vector searcher
func NewVectorService(embedder embedding.Embedder, searcher vector.Searcher, config Config) *VectorService {
	if config.MaxResults <= 0 {
		config.MaxResults = DefaultConfig(config.Collection).MaxResults
	}
	return &VectorService{
		embedder: embedder,
		searcher: searcher,
		config:   config,
	}
}

// SearchByText embeds the query the same way documents were embedded and searches
func (s *VectorService) SearchByText(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	vec, err := s.embedder.EmbedText(ctx, embedding.CleanContent(query))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.SearchByVector(ctx, vec, limit)
}

// SearchByVector returns at most limit results above the score threshold,
// best first. limit is capped at MaxResults.
func (s *VectorService) SearchByVector(ctx context.Context, vec []float32, limit int) ([]models.SearchResult, error) {
	if limit <= 0 || limit > s.config.MaxResults {
		limit = s.config.MaxResults
	}

	results, err := s.searcher.Search(ctx, s.config.Collection, vec, limit)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= s.config.ScoreThreshold {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// GetRetrievalContext combines results into a single prompt context
func (s *VectorService) GetRetrievalContext(results []models.SearchResult) string {
	if len(results) == 0 {
		return "No relevant information found."
	}

	var contextBuilder strings.Builder
	for _, r := range results {
		// Add source information to the context
		if source, ok := r.Metadata["source"].(string); ok && source != "" {
			contextBuilder.WriteString(fmt.Sprintf("# SOURCE: %s\n\n", source))
		}

		contextBuilder.WriteString(r.PageContent)
		contextBuilder.WriteString("\n\n")
	}
	return contextBuilder.String()
}
