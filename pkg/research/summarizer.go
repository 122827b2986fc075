package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"google.golang.org/genai"
)

const summaryInstruction = `Summarize the research document the user sends you.
Produce two texts:
- smart_message: the key findings in roughly 1000 characters, readable on its own in a chat message.
- full_message: the unabridged narrative, keeping all findings and reference URLs.`

// DefaultSmartMessageLimit is the hard upper bound for the short
// summary, matching the chat surface's message limit.
const DefaultSmartMessageLimit = 2000

type summaryPayload struct {
	SmartMessage *string `json:"smart_message"`
	FullMessage  *string `json:"full_message"`
}

// Summarizer condenses research prose into the smart/full message pair
// via a schema-constrained generation call.
type Summarizer struct {
	client     *genai.Client
	model      string
	smartLimit int
	logger     *slog.Logger
}

func NewSummarizer(client *genai.Client, model string, smartLimit int, logger *slog.Logger) *Summarizer {
	if smartLimit <= 0 {
		smartLimit = DefaultSmartMessageLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{client: client, model: model, smartLimit: smartLimit, logger: logger}
}

// Summarize sends researchText through the provider a second time,
// constrained to the two-field summary schema. Transport failures are
// ErrProviderUnavailable; an answer that does not match the schema or
// exceeds the smart-message bound is ErrProviderResponseInvalid.
func (s *Summarizer) Summarize(ctx context.Context, researchText string) (smart, full string, err error) {
	if s.client == nil {
		return "", "", fmt.Errorf("%w: client not configured", ErrProviderUnavailable)
	}

	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"smart_message": {
				Type:        genai.TypeString,
				Description: "Concise summary, about 1000 characters.",
				MaxLength:   genai.Ptr(int64(s.smartLimit)),
			},
			"full_message": {
				Type:        genai.TypeString,
				Description: "The complete, unabridged message.",
			},
		},
		Required: []string{"smart_message", "full_message"},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, []*genai.Content{
		genai.NewContentFromText(researchText, genai.RoleUser),
	}, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: summaryInstruction}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	var raw string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			raw += part.Text
		}
	}
	if raw == "" {
		return "", "", fmt.Errorf("%w: empty response", ErrProviderUnavailable)
	}

	smart, full, err = parseSummary([]byte(raw), s.smartLimit)
	if err != nil {
		s.logger.Error("Summary response rejected", "error", err, "raw_len", len(raw))
		return "", "", err
	}

	s.logger.Info("Summary generated", "smart_len", utf8.RuneCountInString(smart), "full_len", len(full))
	return smart, full, nil
}

// parseSummary validates the provider's structured output. The provider
// boundary is untrusted: required fields and the length bound are
// checked here rather than assumed from the schema constraint.
func parseSummary(raw []byte, smartLimit int) (smart, full string, err error) {
	var payload summaryPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrProviderResponseInvalid, err)
	}
	if payload.SmartMessage == nil || *payload.SmartMessage == "" {
		return "", "", fmt.Errorf("%w: smart_message missing", ErrProviderResponseInvalid)
	}
	if payload.FullMessage == nil || *payload.FullMessage == "" {
		return "", "", fmt.Errorf("%w: full_message missing", ErrProviderResponseInvalid)
	}
	if n := utf8.RuneCountInString(*payload.SmartMessage); n > smartLimit {
		return "", "", fmt.Errorf("%w: smart_message length %d exceeds bound %d",
			ErrProviderResponseInvalid, n, smartLimit)
	}
	return *payload.SmartMessage, *payload.FullMessage, nil
}
