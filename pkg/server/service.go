package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kurazuuuuuu/fairy/pkg/config"
	"github.com/kurazuuuuuu/fairy/pkg/database"
	"github.com/kurazuuuuuu/fairy/pkg/embeddings"
	"github.com/kurazuuuuuu/fairy/pkg/research"
	"github.com/kurazuuuuuu/fairy/pkg/splitter"
	"github.com/kurazuuuuuu/fairy/pkg/vectorstore"
)

// Service runs research requests against the pipeline and owns
// persistence of the results. It is the pipeline's ResultStore.
type Service struct {
	DB         *database.PostgresDB
	Cfg        *config.Config
	Generator  research.Generator
	Summarizer research.SummaryProvider
	Extractor  research.Extractor
	Embedder   *embeddings.GoogleEmbedder
}

func NewService(db *database.PostgresDB, cfg *config.Config,
	gen research.Generator, sum research.SummaryProvider, ext research.Extractor,
	embedder *embeddings.GoogleEmbedder) *Service {
	return &Service{
		DB:         db,
		Cfg:        cfg,
		Generator:  gen,
		Summarizer: sum,
		Extractor:  ext,
		Embedder:   embedder,
	}
}

// Research executes the full pipeline for one request. Each run gets a
// fresh pipeline wired to a DB-backed logger so its log lines land in
// research_logs keyed by the run's result id.
func (s *Service) Research(ctx context.Context, req research.Request) (*research.Result, error) {
	dbLogger := slog.New(NewDBLogHandler(s.DB))

	pipeline := research.NewPipeline(s.Generator, s.Summarizer, s.Extractor, s, dbLogger)
	result, err := pipeline.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	// Index for the related-research endpoint. Fire and forget: index
	// failures must not affect an already persisted result.
	if s.Embedder != nil {
		go s.indexResult(result)
	}

	return result, nil
}

// SaveResult implements research.ResultStore.
func (s *Service) SaveResult(ctx context.Context, result *research.Result) error {
	sourcesJSON, err := json.Marshal(result.Sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	query := `
		INSERT INTO research_results (id, owner, keyword, smart_message, full_message, sources, elapsed_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err = s.DB.Pool.QueryRow(ctx, query,
		result.ID, result.Owner, result.Keyword,
		result.SmartMessage, result.FullMessage,
		sourcesJSON, result.ElapsedSeconds,
	).Scan(&result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// GetResult returns the stored result, or nil if the id is unknown.
func (s *Service) GetResult(ctx context.Context, id uuid.UUID) (*research.Result, error) {
	query := `
		SELECT id, owner, keyword, smart_message, full_message, sources, elapsed_seconds, created_at
		FROM research_results
		WHERE id = $1
	`
	result := &research.Result{}
	var sourcesJSON []byte
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&result.ID, &result.Owner, &result.Keyword,
		&result.SmartMessage, &result.FullMessage,
		&sourcesJSON, &result.ElapsedSeconds, &result.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	if err := json.Unmarshal(sourcesJSON, &result.Sources); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
	}
	return result, nil
}

// HistoryEntry is one row of a user's past researches.
type HistoryEntry struct {
	ID        uuid.UUID `json:"uuid"`
	Keyword   string    `json:"keyword"`
	CreatedAt time.Time `json:"created_at"`
}

// ListResults returns a user's research history, newest first.
func (s *Service) ListResults(ctx context.Context, owner string) ([]HistoryEntry, error) {
	query := `
		SELECT id, keyword, created_at
		FROM research_results
		WHERE owner = $1
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.Keyword, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

// GetResultLogs returns the pipeline log lines recorded for a run.
func (s *Service) GetResultLogs(ctx context.Context, resultID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE result_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// RelatedEntry is a prior research ranked by similarity.
type RelatedEntry struct {
	ID        uuid.UUID `json:"uuid"`
	Keyword   string    `json:"keyword"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Related finds prior researches whose indexed content is closest to
// the given result's keyword.
func (s *Service) Related(ctx context.Context, id uuid.UUID, topK int) ([]RelatedEntry, error) {
	if s.Embedder == nil {
		return []RelatedEntry{}, nil
	}
	if topK <= 0 {
		topK = 5
	}

	result, err := s.GetResult(ctx, id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	queryEmbedding, err := s.Embedder.EmbedText(ctx, result.Keyword)
	if err != nil {
		return nil, fmt.Errorf("failed to embed keyword: %w", err)
	}

	store, err := vectorstore.NewPGVectorStore(s.DB.Pool, s.Cfg.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("invalid collection name: %w", err)
	}

	matches, err := store.SimilarResults(ctx, queryEmbedding, topK, id)
	if err != nil {
		return nil, fmt.Errorf("failed to search related results: %w", err)
	}

	entries := make([]RelatedEntry, 0, len(matches))
	for _, m := range matches {
		r, err := s.GetResult(ctx, m.ResultID)
		if err != nil || r == nil {
			continue
		}
		entries = append(entries, RelatedEntry{
			ID:        r.ID,
			Keyword:   r.Keyword,
			Score:     m.Score,
			CreatedAt: r.CreatedAt,
		})
	}
	return entries, nil
}

// indexResult chunks and embeds a completed result's full message so
// later runs can surface it as related research.
func (s *Service) indexResult(result *research.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	textSplitter := splitter.NewRecursiveCharacterTextSplitter(s.Cfg.ChunkSize, s.Cfg.ChunkOverlap)
	chunks, err := textSplitter.SplitText(result.FullMessage)
	if err != nil {
		slog.Error("Failed to split result for indexing", "research_id", result.ID, "error", err)
		return
	}

	vectors, err := s.Embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		slog.Error("Failed to embed result chunks", "research_id", result.ID, "error", err)
		return
	}

	docs := make([]vectorstore.Chunk, len(chunks))
	for i, chunk := range chunks {
		docs[i] = vectorstore.Chunk{
			ResultID:  result.ID,
			Content:   chunk,
			Embedding: vectors[i],
		}
	}

	store, err := vectorstore.NewPGVectorStore(s.DB.Pool, s.Cfg.CollectionName)
	if err != nil {
		slog.Error("Invalid collection name", "error", err)
		return
	}
	if err := store.AddChunks(ctx, docs); err != nil {
		slog.Error("Failed to index result", "research_id", result.ID, "error", err)
		return
	}

	slog.Info("Result indexed", "research_id", result.ID, "chunks", len(docs))
}
