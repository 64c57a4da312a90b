package seo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRobots = `# robots.txt for example.com

User-agent: *
Disallow: /checkout
Disallow: /cart

User-agent: BadBot
Disallow: /

Sitemap: https://example.com/sitemap.xml
sitemap: https://example.com/sitemap-products.xml
`

func TestRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/robots.txt", r.URL.Path)
		fmt.Fprint(w, sampleRobots)
	}))
	defer server.Close()

	f := NewFetcherWithHTTP(server.Client())
	directives, err := f.Robots(context.Background(), server.URL+"/robots.txt")
	require.NoError(t, err)

	// Comments and blank lines are dropped; order is preserved.
	require.Len(t, directives, 7)
	assert.Equal(t, Directive{Directive: "User-agent", Parameter: "*"}, directives[0])
	assert.Equal(t, Directive{Directive: "Disallow", Parameter: "/checkout"}, directives[1])
	assert.Equal(t, Directive{Directive: "Sitemap", Parameter: "https://example.com/sitemap.xml"}, directives[5])
}

func TestSitemaps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleRobots)
	}))
	defer server.Close()

	f := NewFetcherWithHTTP(server.Client())
	sitemaps, err := f.Sitemaps(context.Background(), server.URL+"/robots.txt")
	require.NoError(t, err)

	// Matching is case-insensitive per the robots.txt convention.
	assert.Equal(t, []string{
		"https://example.com/sitemap.xml",
		"https://example.com/sitemap-products.xml",
	}, sitemaps)
}

func TestRobotsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcherWithHTTP(server.Client())
	_, err := f.Robots(context.Background(), server.URL+"/robots.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
