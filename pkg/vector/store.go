package vector

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrew/rag-loader/pkg/models"
)

// Errors returned at the vector database boundary
var (
	ErrConnection         = errors.New("vector database connection failed")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrUpsert             = errors.New("upsert rejected")
)

// Distance is the similarity metric of a collection
type Distance string

const (
	// DistanceCosine is the only metric the loader creates collections with
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
	DistanceEuclid Distance = "euclid"
)

// Batch is a set of points written in one request. IDs, Payloads and
// Vectors are aligned by index.
type Batch struct {
	IDs      []uint64
	Payloads []map[string]any
	Vectors  [][]float32
}

// Len returns the number of points in the batch
func (b Batch) Len() int {
	return len(b.IDs)
}

// Validate checks the three columns are aligned
func (b Batch) Validate() error {
	if len(b.Payloads) != len(b.IDs) || len(b.Vectors) != len(b.IDs) {
		return fmt.Errorf("%w: batch has %d ids, %d payloads, %d vectors",
			ErrUpsert, len(b.IDs), len(b.Payloads), len(b.Vectors))
	}
	return nil
}

// BatchFromTable converts embedding table rows into a batch
func BatchFromTable(t models.Table) Batch {
	return Batch{
		IDs:      t.IDs(),
		Payloads: t.Payloads(),
		Vectors:  t.Vectors(),
	}
}

// Client defines the collection operations the loader needs
type Client interface {
	// DeleteCollection removes a collection, ErrCollectionNotFound if missing
	DeleteCollection(ctx context.Context, name string) error

	// CreateCollection creates a collection, ErrCollectionExists if present
	CreateCollection(ctx context.Context, name string, vectorSize int, distance Distance) error

	// Upsert inserts or updates a batch of points
	Upsert(ctx context.Context, collection string, batch Batch) error

	// Close releases the connection
	Close() error
}

// Searcher finds the stored points most similar to a query vector
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]models.SearchResult, error)
}

// Config contains configuration for a vector database connection
type Config struct {
	URL    string // Database endpoint, e.g. http://localhost:6334
	APIKey string // Static API key or JWT
}

// Dialer opens a Client for a Config
type Dialer func(ctx context.Context, cfg Config) (Client, error)
