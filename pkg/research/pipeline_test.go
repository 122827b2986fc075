package research

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	text string
	err  error
}

func (g *stubGenerator) GenerateResearch(ctx context.Context, keyword string) (string, error) {
	return g.text, g.err
}

// rawSummarizer feeds a canned provider payload through the real
// validation path.
type rawSummarizer struct {
	raw   string
	limit int
}

func (s *rawSummarizer) Summarize(ctx context.Context, researchText string) (string, string, error) {
	return parseSummary([]byte(s.raw), s.limit)
}

type memStore struct {
	mu    sync.Mutex
	saved []*Result
	err   error
}

func (m *memStore) SaveResult(ctx context.Context, result *Result) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	m.saved = append(m.saved, result)
	m.mu.Unlock()
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

const fiveSourceProse = `Findings on the topic.
Reference: https://one.example/a
Reference: https://two.example/b
Reference: https://three.example/c
Reference: https://four.example/d
Reference: https://five.example/e`

func validSummarizer() *rawSummarizer {
	return &rawSummarizer{
		raw:   `{"smart_message": "the short take", "full_message": "the long take"}`,
		limit: DefaultSmartMessageLimit,
	}
}

func TestRunProducesPersistedResult(t *testing.T) {
	store := &memStore{}
	p := NewPipeline(
		&stubGenerator{text: fiveSourceProse},
		validSummarizer(),
		NewCitationExtractor(&fakeResolver{}, nil),
		store,
		nil,
	)

	result, err := p.Run(context.Background(), Request{UserID: "42", Keyword: "quantum computing 2025"})
	require.NoError(t, err)

	assert.Equal(t, "42", result.Owner)
	assert.Equal(t, "quantum computing 2025", result.Keyword)
	assert.Equal(t, "the short take", result.SmartMessage)
	assert.Equal(t, "the long take", result.FullMessage)
	assert.Len(t, result.Sources, 5)
	assert.GreaterOrEqual(t, result.ElapsedSeconds, 0.0)
	assert.NotEqual(t, uuid.Nil, result.ID)

	require.Equal(t, 1, store.count())
	assert.Same(t, result, store.saved[0])
}

func TestRunAssignsFreshIDPerCall(t *testing.T) {
	store := &memStore{}
	p := NewPipeline(
		&stubGenerator{text: "no links here"},
		validSummarizer(),
		NewCitationExtractor(&fakeResolver{}, nil),
		store,
		nil,
	)

	req := Request{UserID: "42", Keyword: "same keyword"}

	first, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestRunProviderUnavailableSkipsPersistence(t *testing.T) {
	store := &memStore{}
	p := NewPipeline(
		&stubGenerator{err: fmt.Errorf("%w: connection refused", ErrProviderUnavailable)},
		validSummarizer(),
		NewCitationExtractor(&fakeResolver{}, nil),
		store,
		nil,
	)

	result, err := p.Run(context.Background(), Request{UserID: "42", Keyword: "anything"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Zero(t, store.count(), "a failed run must never reach the store")
}

func TestRunInvalidSummarySkipsPersistence(t *testing.T) {
	store := &memStore{}
	p := NewPipeline(
		&stubGenerator{text: fiveSourceProse},
		&rawSummarizer{raw: `{"smart_message": "only half"}`, limit: DefaultSmartMessageLimit},
		NewCitationExtractor(&fakeResolver{}, nil),
		store,
		nil,
	)

	result, err := p.Run(context.Background(), Request{UserID: "42", Keyword: "anything"})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrProviderResponseInvalid)
	assert.Zero(t, store.count())
}

func TestRunOversizedSmartMessageIsInvalid(t *testing.T) {
	store := &memStore{}
	p := NewPipeline(
		&stubGenerator{text: "prose"},
		&rawSummarizer{
			raw:   `{"smart_message": "` + strings.Repeat("x", DefaultSmartMessageLimit+1) + `", "full_message": "ok"}`,
			limit: DefaultSmartMessageLimit,
		},
		NewCitationExtractor(&fakeResolver{}, nil),
		store,
		nil,
	)

	_, err := p.Run(context.Background(), Request{UserID: "42", Keyword: "anything"})

	assert.ErrorIs(t, err, ErrProviderResponseInvalid)
	assert.Zero(t, store.count())
}

func TestRunPersistenceFailureIsFatal(t *testing.T) {
	store := &memStore{err: fmt.Errorf("connection reset")}
	p := NewPipeline(
		&stubGenerator{text: "prose"},
		validSummarizer(),
		NewCitationExtractor(&fakeResolver{}, nil),
		store,
		nil,
	)

	result, err := p.Run(context.Background(), Request{UserID: "42", Keyword: "anything"})

	assert.Nil(t, result, "the caller must not believe an unsaved result was saved")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist research result")
}

func TestRunRejectsEmptyKeyword(t *testing.T) {
	store := &memStore{}
	p := NewPipeline(
		&stubGenerator{text: "prose"},
		validSummarizer(),
		NewCitationExtractor(&fakeResolver{}, nil),
		store,
		nil,
	)

	_, err := p.Run(context.Background(), Request{UserID: "42"})
	require.Error(t, err)
	assert.Zero(t, store.count())
}

func TestRunDeduplicatesRedirectedCitation(t *testing.T) {
	// One redirector-wrapped link and one direct link to the same
	// destination yield a single citation in the stored result.
	resolver := &fakeResolver{
		redirects: map[string]string{
			"https://redirector.example/wrapped": "https://news.example/story",
		},
	}
	store := &memStore{}
	p := NewPipeline(
		&stubGenerator{text: "See https://redirector.example/wrapped and https://news.example/story"},
		validSummarizer(),
		NewCitationExtractor(resolver, nil),
		store,
		nil,
	)

	result, err := p.Run(context.Background(), Request{UserID: "42", Keyword: "dedup"})
	require.NoError(t, err)

	require.Len(t, result.Sources, 1)
	assert.Equal(t, "https://news.example/story", result.Sources[0].URL)
}
