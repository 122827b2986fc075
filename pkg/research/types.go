package research

import (
	"time"

	"github.com/google/uuid"
)

// Request is a single research invocation. It is consumed by the
// pipeline and never persisted.
type Request struct {
	UserID  string `json:"user_id"`
	Keyword string `json:"keyword"`
}

// Source is one resolved, deduplicated citation extracted from the
// research text. URL is the post-redirect form; Title and Description
// are best-effort and may be empty.
type Source struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Result is the persisted outcome of one pipeline run. Field names on
// the wire match what the bot and frontend already consume.
type Result struct {
	ID             uuid.UUID `json:"uuid"`
	Owner          string    `json:"owner"`
	Keyword        string    `json:"keyword"`
	SmartMessage   string    `json:"smart_message"`
	FullMessage    string    `json:"full_message"`
	Sources        []Source  `json:"urls"`
	ElapsedSeconds float64   `json:"time"`
	CreatedAt      time.Time `json:"created_at"`
}
