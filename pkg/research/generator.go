package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

const researchInstruction = `You are Fairy, a research AI assistant. Today is %s.
Always use Google Search to gather the latest information before answering.
Investigate the topic thoroughly: technical details, statistics, recent news and trends.
Cite at least five distinct sources and always include the reference URLs in the text,
each with a one-line note on what the link covers.
Answer in a detailed, well-structured way with clear sections.`

// ResearchGenerator issues the search-grounded generation call that
// produces the long-form research text.
type ResearchGenerator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewResearchGenerator(client *genai.Client, model string, logger *slog.Logger) *ResearchGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResearchGenerator{client: client, model: model, logger: logger}
}

// GenerateResearch asks the provider for a grounded, cited write-up of
// keyword. The provider performs its own web search; thinking is
// disabled to keep latency down. Any transport failure or empty answer
// is ErrProviderUnavailable.
func (g *ResearchGenerator) GenerateResearch(ctx context.Context, keyword string) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("%w: client not configured", ErrProviderUnavailable)
	}

	instruction := fmt.Sprintf(researchInstruction, time.Now().Format("2006-01-02 15:04:05"))

	config := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: instruction}},
		},
	}

	g.logger.Info("Generating research", "model", g.model, "keyword", keyword)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(keyword, genai.RoleUser),
	}, config)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	var text string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			text += part.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrProviderUnavailable)
	}

	g.logger.Info("Research generated", "length", len(text))
	return text, nil
}
