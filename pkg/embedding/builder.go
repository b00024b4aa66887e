// Package embedding turns documents into the embedding table that gets
// loaded into a vector collection.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andrew/rag-loader/pkg/logging"
	"github.com/andrew/rag-loader/pkg/models"
)

// ErrModel is returned when the embedding model fails for a row
var ErrModel = errors.New("embedding model error")

// Embedder is the sentence-to-vector capability of an embedding model
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a plain function to Embedder
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// EmbedText calls f
func (f EmbedderFunc) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// ProgressFunc receives the number of finished rows after each one
type ProgressFunc func(done, total int)

type options struct {
	dimension int
	progress  ProgressFunc
}

// Option configures BuildTable
type Option func(*options)

// WithDimension rejects vectors whose length differs from n
func WithDimension(n int) Option {
	return func(o *options) {
		o.dimension = n
	}
}

// WithProgress reports progress over the input documents
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// CleanContent replaces every newline with a single space
func CleanContent(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

// BuildTable embeds every document and returns one record per document in
// input order. Ids start at 1. The first model failure aborts the whole table.
func BuildTable(ctx context.Context, docs []models.Document, embedder Embedder, opts ...Option) (models.Table, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	table := make(models.Table, 0, len(docs))
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content := CleanContent(doc.PageContent)
		id := uint64(i + 1)

		logging.Debugf("📝 Embedding row %d/%d (size: %d chars)", id, len(docs), len(content))
		vector, err := embedder.EmbedText(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrModel, id, err)
		}
		if o.dimension > 0 && len(vector) != o.dimension {
			return nil, fmt.Errorf("%w: row %d: got %d dimensions, want %d", ErrModel, id, len(vector), o.dimension)
		}

		table = append(table, models.Record{
			ID:          id,
			PageContent: content,
			Metadata:    doc.Metadata,
			Payload:     models.NewPayload(content, doc.Metadata),
			Embeddings:  vector,
		})

		if o.progress != nil {
			o.progress(i+1, len(docs))
		}
	}

	return table, nil
}
