package sources

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

// sitemapFetcher reads a sitemap (optionally a Google News sitemap carrying
// <news:title>) and yields one candidate per <url>.
type sitemapFetcher struct {
	client HTTPClient
}

// NewSitemapFetcher builds the fetcher for TypeSitemap.
func NewSitemapFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &sitemapFetcher{client: client}
}

func (f *sitemapFetcher) ID() string { return TypeSitemap }

func (f *sitemapFetcher) Fetch(ctx context.Context, cfg Source) ([]domain.CandidateItem, error) {
	if !strings.EqualFold(cfg.Type, TypeSitemap) {
		return nil, fmt.Errorf("sitemap fetcher received incompatible source type %q", cfg.Type)
	}
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("source %q source_url is empty", cfg.ID)
	}

	raw, err := fetchBody(ctx, f.client, cfg.SourceURL, cfg.ID, Headers(cfg))
	if err != nil {
		return nil, err
	}

	entries, err := parseSitemap(raw)
	if err != nil {
		return nil, fmt.Errorf("decode sitemap: %w", err)
	}
	items := buildItemsFromSitemap(cfg, entries)
	if len(items) == 0 {
		return nil, fmt.Errorf("%s sitemap returned no records", cfg.ID)
	}
	return limitItems(cfg, items, 0), nil
}

type sitemapDoc struct {
	URLs []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc   string `xml:"loc"`
	Title string `xml:"news>title"`
}

func parseSitemap(data []byte) ([]sitemapURL, error) {
	var doc sitemapDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.URLs, nil
}

func buildItemsFromSitemap(cfg Source, entries []sitemapURL) []domain.CandidateItem {
	items := make([]domain.CandidateItem, 0, len(entries))
	for _, entry := range entries {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}
		// Entries without a title are kept; the crawler enriches them from the page.
		if item, ok := newItem(cfg, entry.Title, loc, ""); ok {
			items = append(items, item)
		}
	}
	return items
}
