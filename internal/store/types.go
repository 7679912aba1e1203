// Package store provides durable per-tenant persistence for site
// snapshots, chunk indexes, product catalogs, and build status.
package store

import "time"

// Page is the extracted plain text of a single crawled URL.
type Page struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Snapshot is the raw per-page text of a tenant's site, overwritten
// wholesale on each index build.
type Snapshot struct {
	BaseURL string `json:"base_url"`
	Pages   []Page `json:"pages"`
}

// Chunk is a bounded text window paired with its embedding vector.
// Chunks are immutable once written; the whole set is replaced on reindex.
type Chunk struct {
	URL    string    `json:"url"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// Product is a catalog item plus its derived embedding vector.
type Product struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Price       string    `json:"price"`
	Currency    string    `json:"currency"`
	Image       string    `json:"image"`
	SKU         string    `json:"sku"`
	Brand       string    `json:"brand"`
	Vector      []float32 `json:"vector,omitempty"`
}

// EmbedText returns the text a product is embedded under.
func (p Product) EmbedText() string {
	parts := []string{p.Name, p.Brand, p.Description}
	text := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if text != "" {
			text += ". "
		}
		text += part
	}
	return text
}

// Status summarizes the last successful index build for a tenant.
type Status struct {
	Pages     int       `json:"pages"`
	Chunks    int       `json:"chunks"`
	Products  int       `json:"products"`
	BaseURL   string    `json:"base_url"`
	IndexedAt time.Time `json:"indexed_at"`
}
