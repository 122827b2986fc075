package research

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Generator produces long-form research prose for a keyword.
type Generator interface {
	GenerateResearch(ctx context.Context, keyword string) (string, error)
}

// SummaryProvider condenses research prose into the smart/full pair.
type SummaryProvider interface {
	Summarize(ctx context.Context, researchText string) (smart, full string, err error)
}

// Extractor lists the cited sources found in research prose.
type Extractor interface {
	Extract(text string) []Source
}

// ResultStore persists completed results. A store error fails the run:
// the caller must never be handed a result that was not saved.
type ResultStore interface {
	SaveResult(ctx context.Context, result *Result) error
}

// Pipeline sequences generation, citation extraction, summarization and
// persistence for one research request. Invocations are independent;
// one Pipeline may serve many concurrent runs.
type Pipeline struct {
	generator  Generator
	summarizer SummaryProvider
	extractor  Extractor
	store      ResultStore
	logger     *slog.Logger
}

func NewPipeline(g Generator, s SummaryProvider, e Extractor, store ResultStore, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{generator: g, summarizer: s, extractor: e, store: store, logger: logger}
}

// Run executes the full research pipeline. Generation failures and
// summarizer failures abort the run; citation extraction never does.
// The returned result has been persisted.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Keyword == "" {
		return nil, fmt.Errorf("keyword must not be empty")
	}

	start := time.Now()
	id := uuid.New()
	logger := p.logger.With("research_id", id.String(), "owner", req.UserID)

	logger.Info("Research run started", "keyword", req.Keyword)

	text, err := p.generator.GenerateResearch(ctx, req.Keyword)
	if err != nil {
		logger.Error("Research generation failed", "error", err)
		return nil, err
	}

	// Extraction and summarization both consume the prose and nothing
	// else, so they run side by side.
	var (
		wg      sync.WaitGroup
		sources []Source
		smart   string
		full    string
		sumErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		sources = p.extractor.Extract(text)
	}()
	go func() {
		defer wg.Done()
		smart, full, sumErr = p.summarizer.Summarize(ctx, text)
	}()
	wg.Wait()

	if sumErr != nil {
		logger.Error("Summarization failed", "error", sumErr)
		return nil, sumErr
	}

	elapsed := time.Since(start).Seconds()

	result := &Result{
		ID:             id,
		Owner:          req.UserID,
		Keyword:        req.Keyword,
		SmartMessage:   smart,
		FullMessage:    full,
		Sources:        sources,
		ElapsedSeconds: elapsed,
	}

	if err := p.store.SaveResult(ctx, result); err != nil {
		logger.Error("Failed to persist result", "error", err)
		return nil, fmt.Errorf("persist research result: %w", err)
	}

	logger.Info("Research run completed",
		"sources", len(sources), "elapsed_seconds", elapsed)
	return result, nil
}
