package database

import (
	"context"
	"fmt"
)

func (db *PostgresDB) InitSchema(ctx context.Context) error {
	// 1. Research Results Table
	resultsQuery := `
		CREATE TABLE IF NOT EXISTS research_results (
			id UUID PRIMARY KEY,
			owner TEXT NOT NULL,
			keyword TEXT NOT NULL,
			smart_message TEXT NOT NULL,
			full_message TEXT NOT NULL,
			sources JSONB NOT NULL DEFAULT '[]',
			elapsed_seconds DOUBLE PRECISION,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
	if _, err := db.Pool.Exec(ctx, resultsQuery); err != nil {
		return fmt.Errorf("failed to create research_results table: %w", err)
	}

	// 2. Research Logs Table
	// No FK to research_results: log rows are written while the run is
	// still in flight, before the result row exists.
	logsQuery := `
		CREATE TABLE IF NOT EXISTS research_logs (
			id SERIAL PRIMARY KEY,
			result_id UUID NOT NULL,
			timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			metadata JSONB
		);
	`
	if _, err := db.Pool.Exec(ctx, logsQuery); err != nil {
		return fmt.Errorf("failed to create research_logs table: %w", err)
	}

	// Indexes for faster querying
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_research_logs_result_id ON research_logs(result_id)"); err != nil {
		return fmt.Errorf("failed to create index on research_logs: %w", err)
	}
	if _, err := db.Pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS idx_research_results_owner ON research_results(owner, created_at DESC)"); err != nil {
		return fmt.Errorf("failed to create index on research_results: %w", err)
	}

	return nil
}
