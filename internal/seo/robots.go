// Package seo holds thin SEO helpers that ride the same retrying HTTP
// layer as the analytics clients: robots.txt parsing and Google Knowledge
// Graph lookups.
package seo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/ga4-reporter/internal/pkg/httpretry"
)

// Directive is one robots.txt line split into its directive and parameter
// parts, e.g. {"Disallow", "/checkout"}.
type Directive struct {
	Directive string `json:"directive"`
	Parameter string `json:"parameter"`
}

// Fetcher downloads and parses robots.txt files.
type Fetcher struct {
	httpClient httpretry.HTTPDoer
}

// NewFetcher creates a robots.txt fetcher with the shared retry client.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 2),
	}
}

// NewFetcherWithHTTP creates a fetcher around an existing HTTP doer.
func NewFetcherWithHTTP(doer httpretry.HTTPDoer) *Fetcher {
	return &Fetcher{httpClient: doer}
}

// Robots fetches a robots.txt URL and returns its directives in file
// order. Comment lines and blank lines are skipped.
func (f *Fetcher) Robots(ctx context.Context, url string) ([]Directive, error) {
	body, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	var directives []Directive
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, param, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		directives = append(directives, Directive{
			Directive: strings.TrimSpace(name),
			Parameter: strings.TrimSpace(param),
		})
	}
	return directives, nil
}

// Sitemaps returns the sitemap URLs declared in a robots.txt file.
func (f *Fetcher) Sitemaps(ctx context.Context, url string) ([]string, error) {
	directives, err := f.Robots(ctx, url)
	if err != nil {
		return nil, err
	}
	var sitemaps []string
	for _, d := range directives {
		if strings.EqualFold(d.Directive, "Sitemap") {
			sitemaps = append(sitemaps, d.Parameter)
		}
	}
	return sitemaps, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	return string(body), nil
}
