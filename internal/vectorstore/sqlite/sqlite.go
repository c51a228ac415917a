// Package sqlite is a persistent vector store on a single SQLite file.
// Search is brute-force cosine over every stored vector.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "modernc.org/sqlite"

	"docqa/internal/domain"
	"docqa/internal/vectorstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS store_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id    TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	text        TEXT NOT NULL,
	metadata    TEXT,
	embedding   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
`

// Storage implements domain.VectorStore on SQLite.
type Storage struct {
	db *sql.DB

	mu        sync.RWMutex
	dimension int
}

// NewStorage opens (or creates) the database at path.
func NewStorage(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases the database handle.
func (s *Storage) Close() error { return s.db.Close() }

// Init records the vector dimension. Rows written with a different dimension are dropped.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = 'dimension'`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read dimension: %w", err)
	case stored != strconv.Itoa(dimension):
		if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
			return fmt.Errorf("reset chunks: %w", err)
		}
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO store_meta(key, value) VALUES('dimension', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, strconv.Itoa(dimension)); err != nil {
		return fmt.Errorf("write dimension: %w", err)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	s.mu.RLock()
	dim := s.dimension
	s.mu.RUnlock()
	for _, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("sqlite store: got %d, want %d: %w", len(v), dim, domain.ErrDimensionMismatch)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks(chunk_id, document_id, idx, text, metadata, embedding) VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chunk_id) DO UPDATE SET document_id = excluded.document_id, idx = excluded.idx,
		 text = excluded.text, metadata = excluded.metadata, embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, ch := range chunks {
		meta, err := json.Marshal(ch.Metadata)
		if err != nil {
			return err
		}
		blob, err := encodeVector(vectors[i])
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, ch.ChunkID, ch.DocumentID, ch.Index, ch.Text, string(meta), blob); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", ch.ChunkID, err)
		}
	}
	return tx.Commit()
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chunk_id, document_id, idx, text, metadata, embedding FROM chunks ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.Chunk
	var scores []float64
	for rows.Next() {
		var ch domain.Chunk
		var meta sql.NullString
		var blob []byte
		if err := rows.Scan(&ch.ChunkID, &ch.DocumentID, &ch.Index, &ch.Text, &meta, &blob); err != nil {
			return nil, err
		}
		if meta.Valid && meta.String != "" && meta.String != "null" {
			if err := json.Unmarshal([]byte(meta.String), &ch.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of %s: %w", ch.ChunkID, err)
			}
		}
		chunks = append(chunks, ch)
		scores = append(scores, vectorstore.Cosine(decodeVector(blob), vector))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	idxs := vectorstore.TopK(scores, topK)
	results := make([]domain.SearchResult, 0, len(idxs))
	for _, j := range idxs {
		results = append(results, domain.SearchResult{Chunk: chunks[j], Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	return err
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func encodeVector(vec []float64) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeVector(blob []byte) []float64 {
	if len(blob) == 0 || len(blob)%8 != 0 {
		return nil
	}
	vec := make([]float64, len(blob)/8)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vec); err != nil {
		return nil
	}
	return vec
}
