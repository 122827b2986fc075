package vectorstore

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Chunk is one embedded slice of a research result's full message.
type Chunk struct {
	ResultID  uuid.UUID `json:"result_id"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// RelatedResult is a prior research result ranked by similarity to a
// query embedding.
type RelatedResult struct {
	ResultID uuid.UUID
	Score    float64
}

// PGVectorStore handles pgvector operations for the related-research index
type PGVectorStore struct {
	pool      *pgxpool.Pool
	tableName string
}

// isValidTableName validates that a table name contains only safe characters
// to prevent SQL injection attacks
func isValidTableName(name string) bool {
	// Only allow alphanumeric characters and underscores
	// Table names must start with a letter or underscore and be between 1-63 chars (PostgreSQL limit)
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

// NewPGVectorStore creates a new PGVector store
func NewPGVectorStore(pool *pgxpool.Pool, tableName string) (*PGVectorStore, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long")
	}
	return &PGVectorStore{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// AddChunks inserts embedded chunks for a result into the index
func (vs *PGVectorStore) AddChunks(ctx context.Context, chunks []Chunk) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (result_id, content, embedding)
		VALUES ($1, $2, $3)
	`, pgx.Identifier{vs.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(query, chunk.ResultID, chunk.Content, pgvector.NewVector(chunk.Embedding))
	}

	br := vs.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	return nil
}

// SimilarResults returns the distinct prior results closest to the
// query embedding, best chunk per result, excluding the result the
// query came from.
func (vs *PGVectorStore) SimilarResults(ctx context.Context, queryEmbedding []float32, topK int, exclude uuid.UUID) ([]RelatedResult, error) {
	query := fmt.Sprintf(`
		SELECT result_id, MAX(1 - (embedding <=> $1)) AS similarity
		FROM %s
		WHERE result_id <> $2
		GROUP BY result_id
		ORDER BY similarity DESC
		LIMIT $3
	`, pgx.Identifier{vs.tableName}.Sanitize())

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(queryEmbedding), exclude, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []RelatedResult
	for rows.Next() {
		var r RelatedResult
		if err := rows.Scan(&r.ResultID, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// DeleteResult removes every chunk indexed for a result
func (vs *PGVectorStore) DeleteResult(ctx context.Context, resultID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE result_id = $1`, pgx.Identifier{vs.tableName}.Sanitize())
	if _, err := vs.pool.Exec(ctx, query, resultID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}
