// Package tablestore keeps an embedding table in a SQLite file so that the
// embed and load steps can run as separate commands.
package tablestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/andrew/rag-loader/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id           INTEGER PRIMARY KEY,
	page_content TEXT NOT NULL,
	metadata     TEXT NOT NULL,
	payload      TEXT NOT NULL,
	embeddings   TEXT NOT NULL
)`

// row is the SQLite shape of a models.Record; JSON columns hold the maps and vector
type row struct {
	ID          int64  `db:"id"`
	PageContent string `db:"page_content"`
	Metadata    string `db:"metadata"`
	Payload     string `db:"payload"`
	Embeddings  string `db:"embeddings"`
}

// Store is a SQLite-backed embedding table
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the table file at path
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table store %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases consistent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save replaces the stored table with t in one transaction
func (s *Store) Save(ctx context.Context, t models.Table) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("failed to clear records: %w", err)
	}

	for _, r := range t {
		encoded, err := toRow(r)
		if err != nil {
			return err
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO records (id, page_content, metadata, payload, embeddings)
			VALUES (:id, :page_content, :metadata, :payload, :embeddings)`, encoded)
		if err != nil {
			return fmt.Errorf("failed to insert record %d: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table: %w", err)
	}
	return nil
}

// Load returns the stored table ordered by id
func (s *Store) Load(ctx context.Context) (models.Table, error) {
	var rows []row
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, page_content, metadata, payload, embeddings FROM records ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	table := make(models.Table, 0, len(rows))
	for _, r := range rows {
		record, err := fromRow(r)
		if err != nil {
			return nil, err
		}
		table = append(table, record)
	}
	return table, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func toRow(r models.Record) (row, error) {
	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return row{}, fmt.Errorf("failed to encode metadata of record %d: %w", r.ID, err)
	}
	payload, err := json.Marshal(r.Payload)
	if err != nil {
		return row{}, fmt.Errorf("failed to encode payload of record %d: %w", r.ID, err)
	}
	embeddings, err := json.Marshal(r.Embeddings)
	if err != nil {
		return row{}, fmt.Errorf("failed to encode embeddings of record %d: %w", r.ID, err)
	}
	return row{
		ID:          int64(r.ID),
		PageContent: r.PageContent,
		Metadata:    string(metadata),
		Payload:     string(payload),
		Embeddings:  string(embeddings),
	}, nil
}

func fromRow(r row) (models.Record, error) {
	record := models.Record{
		ID:          uint64(r.ID),
		PageContent: r.PageContent,
	}
	if err := json.Unmarshal([]byte(r.Metadata), &record.Metadata); err != nil {
		return models.Record{}, fmt.Errorf("failed to decode metadata of record %d: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Payload), &record.Payload); err != nil {
		return models.Record{}, fmt.Errorf("failed to decode payload of record %d: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Embeddings), &record.Embeddings); err != nil {
		return models.Record{}, fmt.Errorf("failed to decode embeddings of record %d: %w", r.ID, err)
	}
	return record, nil
}
