// Package loader pushes an embedding table into a vector database
// collection, optionally dropping and recreating the collection first.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/andrew/rag-loader/pkg/logging"
	"github.com/andrew/rag-loader/pkg/models"
	"github.com/andrew/rag-loader/pkg/vector"
)

// Request describes one load into a collection
type Request struct {
	URL               string // Database endpoint
	Credential        string // API key or JWT
	Collection        string
	VectorSize        int
	BatchSize         int
	DeletePrev        bool // Drop the collection first; a missing collection is fine
	CreateFromScratch bool // Create the collection with cosine distance
	FirstBatchOnly    bool // Send only the first BatchSize rows
}

// Result reports what was written
type Result struct {
	Upserted int
	Batches  int
}

// Validate checks the request before any connection is made
func (r Request) Validate() error {
	if r.Collection == "" {
		return errors.New("collection name is required")
	}
	if r.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", r.BatchSize)
	}
	if r.CreateFromScratch && r.VectorSize <= 0 {
		return fmt.Errorf("vector size must be positive to create a collection, got %d", r.VectorSize)
	}
	return nil
}

// CreateNewCollection connects through dial, optionally deletes and creates
// the collection, upserts the table in BatchSize slices, and prints a
// confirmation to out. The connection is closed on every path.
func CreateNewCollection(ctx context.Context, dial vector.Dialer, req Request, table models.Table, out io.Writer) (result Result, err error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	rows := table
	if req.FirstBatchOnly {
		rows = table.Head(req.BatchSize)
	}
	if err := checkDimensions(rows, req.VectorSize); err != nil {
		return Result{}, err
	}

	client, err := dial(ctx, vector.Config{URL: req.URL, APIKey: req.Credential})
	if err != nil {
		if !errors.Is(err, vector.ErrConnection) {
			err = fmt.Errorf("%w: %v", vector.ErrConnection, err)
		}
		return Result{}, err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close connection: %w", cerr)
		}
	}()

	if req.DeletePrev {
		if err := client.DeleteCollection(ctx, req.Collection); err != nil {
			if !errors.Is(err, vector.ErrCollectionNotFound) {
				return Result{}, fmt.Errorf("failed to delete collection: %w", err)
			}
			logging.Debugf("⚠️ Collection %s did not exist, nothing to delete", req.Collection)
		}
	}

	if req.CreateFromScratch {
		if err := client.CreateCollection(ctx, req.Collection, req.VectorSize, vector.DistanceCosine); err != nil {
			return Result{}, fmt.Errorf("failed to create collection: %w", err)
		}
	}

	for _, chunk := range rows.Chunks(req.BatchSize) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := client.Upsert(ctx, req.Collection, vector.BatchFromTable(chunk)); err != nil {
			return result, fmt.Errorf("failed to upsert points: %w", err)
		}
		result.Batches++
		result.Upserted += len(chunk)
		logging.Debugf("📤 Upserted %d/%d points", result.Upserted, len(rows))
	}

	if out != nil {
		color.New(color.FgGreen).Fprintf(out, "Collection %s created and updated with the embeddings\n", req.Collection)
	}
	return result, nil
}

// checkDimensions rejects rows whose vector length differs from size
func checkDimensions(rows models.Table, size int) error {
	if size <= 0 {
		return nil
	}
	for _, r := range rows {
		if len(r.Embeddings) != size {
			return fmt.Errorf("%w: point %d has %d dimensions, collection expects %d",
				vector.ErrUpsert, r.ID, len(r.Embeddings), size)
		}
	}
	return nil
}
