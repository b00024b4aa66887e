// Package docs reads the documents fed to the embedding builder, either from
// a JSON Lines dump or by chunking a directory of text files.
package docs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/andrew/rag-loader/pkg/logging"
	"github.com/andrew/rag-loader/pkg/models"
)

// Default chunking for LoadDir
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

const maxLineSize = 16 << 20

// ReadJSONL reads one {"page_content": ..., "metadata": {...}} object per line.
// Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]models.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var documents []models.Document
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var doc models.Document
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("invalid document on line %d: %w", lineNo, err)
		}
		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		documents = append(documents, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading documents: %w", err)
	}
	return documents, nil
}

// ReadJSONLFile opens path and reads it with ReadJSONL
func ReadJSONLFile(path string) ([]models.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	return ReadJSONL(file)
}

// LoadDir walks root for .md and .txt files and splits each into chunks.
// Every chunk carries the relative source path, the chunk number and a
// per-file document id.
func LoadDir(root string, chunkSize, overlap int) ([]models.Document, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be between 0 and chunk size %d", overlap, chunkSize)
	}

	files, err := contentFiles(root)
	if err != nil {
		return nil, fmt.Errorf("error finding content files: %w", err)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(overlap),
	)

	var documents []models.Document
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading file %s: %w", path, err)
		}

		chunks, err := splitter.SplitText(string(content))
		if err != nil {
			return nil, fmt.Errorf("error splitting file %s: %w", path, err)
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}
		documentID := uuid.New().String()
		logging.Debugf("🧩 Split %s into %d chunks", relPath, len(chunks))

		for i, chunk := range chunks {
			documents = append(documents, models.Document{
				PageContent: chunk,
				Metadata: map[string]any{
					"source":      relPath,
					"document_id": documentID,
					"chunk":       i,
				},
			})
		}
	}
	return documents, nil
}

// contentFiles recursively finds text files in a directory, sorted by path
func contentFiles(rootDir string) ([]string, error) {
	var files []string

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip directories
		if info.IsDir() {
			return nil
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt":
			files = append(files, path)
		}
		return nil
	})

	return files, err
}
