package crawler

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/sitechat-ai/sitechat/internal/store"
)

var whitespaceRE = regexp.MustCompile(`\s+`)

// HTMLToText strips script/style blocks and all markup from an HTML
// document and collapses runs of whitespace to single spaces.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Not parseable as HTML; fall back to a crude tag strip.
		return collapse(regexp.MustCompile(`<[^>]*>`).ReplaceAllString(html, " "))
	}

	doc.Find("script, style, noscript").Remove()
	return collapse(doc.Text())
}

func collapse(text string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}

// ExtractProducts parses schema.org Product blocks embedded as JSON-LD.
// Each block is parsed independently; a malformed block is skipped without
// aborting extraction of the remaining blocks on the page.
func ExtractProducts(html, pageURL string) []store.Product {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var products []store.Product
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var raw any
		if err := json.Unmarshal([]byte(s.Text()), &raw); err != nil {
			log.Debug("Skipping malformed JSON-LD block", "page", pageURL, "error", err)
			return
		}
		for _, node := range flattenLD(raw) {
			if p, ok := productFromLD(node, pageURL); ok {
				products = append(products, p)
			}
		}
	})

	return products
}

// flattenLD expands a decoded JSON-LD document into its candidate nodes:
// a bare object, a top-level array, or the contents of an @graph.
func flattenLD(raw any) []map[string]any {
	var nodes []map[string]any
	switch v := raw.(type) {
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			for _, g := range graph {
				if m, ok := g.(map[string]any); ok {
					nodes = append(nodes, m)
				}
			}
		}
		nodes = append(nodes, v)
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				nodes = append(nodes, m)
			}
		}
	}
	return nodes
}

// productFromLD converts one JSON-LD node into a Product if it is
// product-typed.
func productFromLD(node map[string]any, pageURL string) (store.Product, bool) {
	if !isProductType(node["@type"]) {
		return store.Product{}, false
	}

	p := store.Product{
		Name:        ldString(node["name"]),
		Description: ldString(node["description"]),
		URL:         ldString(node["url"]),
		Image:       ldImage(node["image"]),
		SKU:         ldString(node["sku"]),
		Brand:       ldBrand(node["brand"]),
	}
	if p.URL == "" {
		p.URL = pageURL
	}

	if offer := firstOffer(node["offers"]); offer != nil {
		p.Price = ldString(offer["price"])
		p.Currency = ldString(offer["priceCurrency"])
	}

	if p.Name == "" {
		return store.Product{}, false
	}
	return p, true
}

// isProductType reports whether a JSON-LD @type declares a Product,
// accepting both the scalar and list forms.
func isProductType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.EqualFold(v, "Product")
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

// firstOffer returns the first offer object, handling both the single
// object and array forms.
func firstOffer(offers any) map[string]any {
	switch v := offers.(type) {
	case map[string]any:
		return v
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

// ldString renders a JSON-LD scalar as a string. Prices in particular
// appear as both strings and numbers in the wild.
func ldString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		// JSON numbers decode as float64; print without a forced exponent.
		b, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// ldBrand handles the string and Brand-object forms of brand.
func ldBrand(v any) string {
	switch b := v.(type) {
	case string:
		return strings.TrimSpace(b)
	case map[string]any:
		return ldString(b["name"])
	}
	return ""
}

// ldImage handles the string, list, and ImageObject forms of image.
func ldImage(v any) string {
	switch img := v.(type) {
	case string:
		return strings.TrimSpace(img)
	case []any:
		for _, item := range img {
			if s := ldImage(item); s != "" {
				return s
			}
		}
	case map[string]any:
		return ldString(img["url"])
	}
	return ""
}
