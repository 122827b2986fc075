package research

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// trailing punctuation that prose attaches to a link but is not part of it
const urlTrailingCutset = ".,;:!?)'\"]>」）。、"

// Resolver is the subset of URLResolver the extractor needs. Split out
// so tests can substitute fetch behavior.
type Resolver interface {
	Resolve(rawURL string) string
	FetchTitle(pageURL string) (title, description string)
	IsReachable(pageURL string) bool
}

// CitationExtractor turns free research prose into an ordered list of
// unique, reachable sources.
type CitationExtractor struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewCitationExtractor(resolver Resolver, logger *slog.Logger) *CitationExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CitationExtractor{resolver: resolver, logger: logger}
}

// Extract scans text for URLs, resolves redirector links, deduplicates
// on the resolved form and emits one Source per surviving URL in
// first-appearance order. Citations whose existence probe returns an
// explicit 404 are dropped; every other fetch failure degrades to a
// missing title. Text without URLs yields an empty list.
func (e *CitationExtractor) Extract(text string) []Source {
	candidates := urlPattern.FindAllString(text, -1)
	if len(candidates) == 0 {
		return []Source{}
	}

	// Resolve in parallel, keeping the match order by index.
	resolved := make([]string, len(candidates))
	var wg sync.WaitGroup
	for i, raw := range candidates {
		wg.Add(1)
		go func(i int, raw string) {
			defer wg.Done()
			resolved[i] = e.resolver.Resolve(strings.TrimRight(raw, urlTrailingCutset))
		}(i, raw)
	}
	wg.Wait()

	// Dedup on the resolved form, first appearance wins.
	seen := make(map[string]bool, len(resolved))
	unique := make([]string, 0, len(resolved))
	for _, u := range resolved {
		if seen[u] {
			continue
		}
		seen[u] = true
		unique = append(unique, u)
	}

	// Probe and title each unique URL in parallel. A nil slot means the
	// citation was dropped.
	out := make([]*Source, len(unique))
	for i, u := range unique {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			if !e.resolver.IsReachable(u) {
				e.logger.Warn("Dropping dead citation", "url", u)
				return
			}
			title, description := e.resolver.FetchTitle(u)
			out[i] = &Source{URL: u, Title: title, Description: description}
		}(i, u)
	}
	wg.Wait()

	sources := make([]Source, 0, len(out))
	for _, s := range out {
		if s != nil {
			sources = append(sources, *s)
		}
	}

	e.logger.Info("Citations extracted",
		"matches", len(candidates), "unique", len(unique), "kept", len(sources))
	return sources
}
