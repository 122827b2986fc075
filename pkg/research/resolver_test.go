package research

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(t *testing.T, redirectorHosts ...string) *URLResolver {
	t.Helper()
	return NewURLResolver(2*time.Second, redirectorHosts...)
}

func hostOf(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Hostname()
}

func TestResolvePassesThroughNonRedirectorURLs(t *testing.T) {
	r := testResolver(t)

	raw := "https://example.com/article?id=42"
	assert.Equal(t, raw, r.Resolve(raw))
}

func TestResolveFollowsRedirectorChain(t *testing.T) {
	dest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer dest.Close()

	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, dest.URL+"/final", http.StatusFound)
	}))
	defer hop.Close()

	r := testResolver(t, hostOf(t, hop.URL))

	resolved := r.Resolve(hop.URL + "/wrapped")
	assert.Equal(t, dest.URL+"/final", resolved)
}

func TestResolveSoftFailsOnDeadRedirector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {}))
	host := hostOf(t, srv.URL)
	raw := srv.URL + "/gone"
	srv.Close()

	r := testResolver(t, host)
	assert.Equal(t, raw, r.Resolve(raw))
}

func TestFetchTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/full":
			fmt.Fprint(w, `<html><head><title> Quantum Report </title><meta name="description" content="A yearly overview."></head></html>`)
		case "/h1only":
			fmt.Fprint(w, `<html><body><h1>Fallback Heading</h1></body></html>`)
		case "/missing":
			http.NotFound(w, req)
		}
	}))
	defer srv.Close()

	r := testResolver(t)

	title, desc := r.FetchTitle(srv.URL + "/full")
	assert.Equal(t, "Quantum Report", title)
	assert.Equal(t, "A yearly overview.", desc)

	title, desc = r.FetchTitle(srv.URL + "/h1only")
	assert.Equal(t, "Fallback Heading", title)
	assert.Empty(t, desc)

	title, desc = r.FetchTitle(srv.URL + "/missing")
	assert.Empty(t, title)
	assert.Empty(t, desc)
}

func TestFetchTitleSoftFailsOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {}))
	dead := srv.URL
	srv.Close()

	r := testResolver(t)
	title, desc := r.FetchTitle(dead)
	assert.Empty(t, title)
	assert.Empty(t, desc)
}

func TestIsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	r := testResolver(t)

	assert.True(t, r.IsReachable(srv.URL+"/ok"))
	assert.False(t, r.IsReachable(srv.URL+"/gone"), "explicit 404 drops the citation")
	assert.True(t, r.IsReachable(srv.URL+"/broken"), "server errors are not proof of absence")
}

func TestIsReachableTreatsNetworkErrorAsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {}))
	dead := srv.URL
	srv.Close()

	r := testResolver(t)
	assert.True(t, r.IsReachable(dead), "uncertainty must not suppress a citation")
}
