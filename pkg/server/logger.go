package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/kurazuuuuuu/fairy/pkg/database"
)

// DBLogHandler is a slog.Handler that writes records to the
// research_logs table, keyed by the research_id attribute the pipeline
// attaches to its run logger. Records without a research_id are
// dropped: they cannot be correlated with a run.
type DBLogHandler struct {
	DB    *database.PostgresDB
	attrs []slog.Attr
}

func NewDBLogHandler(db *database.PostgresDB) *DBLogHandler {
	return &DBLogHandler{DB: db}
}

func (h *DBLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *DBLogHandler) Handle(ctx context.Context, r slog.Record) error {
	resultID := ""
	meta := make(map[string]interface{})

	collect := func(a slog.Attr) {
		if a.Key == "research_id" {
			resultID = a.Value.String()
			return
		}
		meta[a.Key] = a.Value.Any()
	}

	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	if resultID == "" {
		return nil
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	query := `
		INSERT INTO research_logs (result_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`

	// Background context so the line persists even if the request
	// context was cancelled mid-run.
	_, err = h.DB.Pool.Exec(context.Background(), query, resultID, r.Time, r.Level.String(), r.Message, metaJSON)
	return err
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &DBLogHandler{DB: h.DB, attrs: merged}
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	return h
}
