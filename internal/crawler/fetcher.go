// Package crawler retrieves a tenant's site content: sitemap discovery,
// page fetching, and extraction of text and structured product data.
package crawler

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPageTimeout bounds a single page fetch.
const DefaultPageTimeout = 15 * time.Second

// maxPageBody caps how much of a response body is read.
const maxPageBody = 5 << 20 // 5MB

// Fetcher retrieves sitemap listings and raw page content over HTTP.
type Fetcher struct {
	client      *http.Client
	pageTimeout time.Duration
}

// NewFetcher creates a Fetcher. A zero pageTimeout uses DefaultPageTimeout.
func NewFetcher(pageTimeout time.Duration) *Fetcher {
	if pageTimeout <= 0 {
		pageTimeout = DefaultPageTimeout
	}
	return &Fetcher{
		client:      &http.Client{Timeout: pageTimeout},
		pageTimeout: pageTimeout,
	}
}

// sitemapURLSet is the subset of the sitemap protocol we read.
type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// FetchSitemap returns the page URLs listed in <origin>/sitemap.xml,
// truncated to maxPages. Any failure (network, non-2xx, parse) falls back
// to a single-element list containing baseURL so a site without a sitemap
// is still indexable.
func (f *Fetcher) FetchSitemap(ctx context.Context, baseURL string, maxPages int) []string {
	fallback := []string{baseURL}
	if maxPages <= 0 {
		maxPages = 1
	}

	origin, err := originOf(baseURL)
	if err != nil {
		log.Debug("Invalid base URL, using as-is", "url", baseURL, "error", err)
		return fallback
	}

	body, err := f.fetch(ctx, origin+"/sitemap.xml")
	if err != nil {
		log.Debug("Sitemap unavailable, falling back to base URL", "url", baseURL, "error", err)
		return fallback
	}

	var set sitemapURLSet
	if err := xml.Unmarshal(body, &set); err != nil {
		log.Debug("Sitemap parse failed, falling back to base URL", "url", baseURL, "error", err)
		return fallback
	}

	var urls []string
	for _, u := range set.URLs {
		loc := strings.TrimSpace(u.Loc)
		if loc == "" {
			continue
		}
		urls = append(urls, loc)
		if len(urls) >= maxPages {
			break
		}
	}

	if len(urls) == 0 {
		return fallback
	}

	log.Debug("Sitemap fetched", "url", baseURL, "pages", len(urls))
	return urls
}

// FetchPage retrieves the raw content of a single page. A timeout or
// non-2xx response is a recoverable failure; callers skip the URL and
// continue the crawl.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) (string, error) {
	body, err := f.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// fetch issues one time-bounded GET and returns the body.
func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.pageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "sitechat-indexer/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", rawURL, err)
	}
	return body, nil
}

// originOf reduces a URL to its scheme://host origin.
func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("missing scheme or host in %q", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
