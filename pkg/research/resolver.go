package research

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const userAgent = "Mozilla/5.0 (compatible; FairyBot/1.0; research-assistant)"

// GroundingRedirectHost is the outbound-link redirector Gemini wraps
// grounded citations in. Links on this host are opaque until followed.
const GroundingRedirectHost = "vertexaisearch.cloud.google.com"

// URLResolver follows provider redirect links to their destination and
// probes pages for metadata. Every method is best-effort: network
// failures degrade the answer instead of propagating.
type URLResolver struct {
	client          *http.Client
	redirectorHosts []string
}

// NewURLResolver creates a resolver with the given per-request timeout.
// If no redirector hosts are given, the Gemini grounding redirector is
// assumed.
func NewURLResolver(timeout time.Duration, redirectorHosts ...string) *URLResolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if len(redirectorHosts) == 0 {
		redirectorHosts = []string{GroundingRedirectHost}
	}
	return &URLResolver{
		client:          &http.Client{Timeout: timeout},
		redirectorHosts: redirectorHosts,
	}
}

func (r *URLResolver) isRedirector(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	for _, h := range r.redirectorHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Resolve returns the canonical destination of rawURL. Redirector links
// are fetched and the final location after all redirects is returned;
// anything else passes through unchanged. On any network failure the
// original URL is returned.
func (r *URLResolver) Resolve(rawURL string) string {
	if !r.isRedirector(rawURL) {
		return rawURL
	}

	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return rawURL
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	// The client followed the redirect chain; this is the last hop.
	return resp.Request.URL.String()
}

// FetchTitle fetches the page and extracts its title and meta
// description. Both are empty on any network or parse failure.
func (r *URLResolver) FetchTitle(pageURL string) (title, description string) {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return "", ""
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ""
	}

	// 512KB is plenty for the <head>.
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	description, _ = doc.Find(`meta[name="description"]`).First().Attr("content")
	return title, strings.TrimSpace(description)
}

// IsReachable probes pageURL with a header-only request. It reports
// false only on an explicit 404; timeouts and transport errors count as
// reachable so that uncertainty never suppresses a citation.
func (r *URLResolver) IsReachable(pageURL string) bool {
	req, err := http.NewRequest(http.MethodHead, pageURL, nil)
	if err != nil {
		return true
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return true
	}
	defer resp.Body.Close()

	return resp.StatusCode != http.StatusNotFound
}
