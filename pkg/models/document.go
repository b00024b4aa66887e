package models

import "time"

// Payload keys stored alongside every vector
const (
	PayloadPageContent = "page_content"
	PayloadMetadata    = "metadata"
)

// Document is a text chunk handed in for embedding
type Document struct {
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
}

// Record is one row of the embedding table
type Record struct {
	ID          uint64         `json:"id"`
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
	Payload     map[string]any `json:"payload"`
	Embeddings  []float32      `json:"embeddings"`
}

// Table is the ordered output of the embedding builder
type Table []Record

// NewPayload builds the stored document body for a chunk
func NewPayload(pageContent string, metadata map[string]any) map[string]any {
	return map[string]any{
		PayloadPageContent: pageContent,
		PayloadMetadata:    metadata,
	}
}

// IDs returns the record ids in row order
func (t Table) IDs() []uint64 {
	ids := make([]uint64, len(t))
	for i, r := range t {
		ids[i] = r.ID
	}
	return ids
}

// Payloads returns the record payloads in row order
func (t Table) Payloads() []map[string]any {
	payloads := make([]map[string]any, len(t))
	for i, r := range t {
		payloads[i] = r.Payload
	}
	return payloads
}

// Vectors returns the record embeddings in row order
func (t Table) Vectors() [][]float32 {
	vectors := make([][]float32, len(t))
	for i, r := range t {
		vectors[i] = r.Embeddings
	}
	return vectors
}

// Head returns at most the first n rows
func (t Table) Head(n int) Table {
	if n < 0 {
		n = 0
	}
	if n > len(t) {
		n = len(t)
	}
	return t[:n]
}

// Chunks splits the table into consecutive slices of at most size rows
func (t Table) Chunks(size int) []Table {
	if size <= 0 || len(t) == 0 {
		return nil
	}
	chunks := make([]Table, 0, (len(t)+size-1)/size)
	for start := 0; start < len(t); start += size {
		end := start + size
		if end > len(t) {
			end = len(t)
		}
		chunks = append(chunks, t[start:end])
	}
	return chunks
}

// SearchResult represents a stored chunk that matched a query
type SearchResult struct {
	ID          uint64         `json:"id"`
	PageContent string         `json:"page_content"`
	Metadata    map[string]any `json:"metadata"`
	Score       float32        `json:"score"`
	RetrievedAt time.Time      `json:"retrieved_at"`
}
