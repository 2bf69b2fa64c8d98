package crawler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/logger"
	"github.com/samvad-hq/samvad-social-poster/pkg/httpclient"
	"github.com/samvad-hq/samvad-social-poster/pkg/sources"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
)

// Scraper fetches item pages and fills missing titles from OG tags.
type Scraper struct {
	client httpclient.Client
	log    logger.Logger
}

// NewScraper constructs a scraper with the provided HTTP client (or default).
func NewScraper(client httpclient.Client, log logger.Logger) *Scraper {
	if client == nil {
		client = sources.DefaultHTTPClient()
	}
	return &Scraper{client: client, log: logger.Ensure(log)}
}

// Enrich fetches the page of every item that has no title, throttled by the
// source request delay. Items that already carry a title are not fetched. On
// cancellation the items processed so far are returned.
func (s *Scraper) Enrich(ctx context.Context, cfg sources.Source, items []domain.CandidateItem) []domain.CandidateItem {
	delay := cfg.RequestDelay()
	out := append([]domain.CandidateItem(nil), items...)
	fetched := 0

	for i, item := range items {
		if item.DisplayTitle != "" {
			continue
		}

		if delay > 0 && fetched > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out[:i]
			case <-timer.C:
			}
		}
		if ctx.Err() != nil {
			return out[:i]
		}

		fetched++
		enriched, err := s.fetchAndParse(ctx, cfg, item)
		if err != nil {
			s.log.WarnObj("item metadata scrape failed", "metadata_error", map[string]any{
				"source_id": cfg.ID,
				"url":       item.Attribute(domain.AttrLink),
				"error":     err.Error(),
			})
			continue
		}
		out[i] = enriched
	}

	return out
}

func (s *Scraper) fetchAndParse(ctx context.Context, cfg sources.Source, item domain.CandidateItem) (domain.CandidateItem, error) {
	link := item.Attribute(domain.AttrLink)
	if link == "" {
		link = item.NaturalKey
	}

	resp, err := s.client.Get(ctx, link, sources.Headers(cfg))
	if err != nil {
		return item, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return item, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	title, err := parseTitle(body)
	if err != nil {
		return item, err
	}
	if title != "" {
		item.DisplayTitle = strings.Join(strings.Fields(title), " ")
	}
	return item, nil
}

func parseTitle(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	og := ""
	if node := doc.Find(`meta[property="og:title"]`).First(); node.Length() > 0 {
		og, _ = node.Attr("content")
	}
	return firstNonEmpty(
		og,
		doc.Find(`meta[name="twitter:title"]`).AttrOr("content", ""),
		doc.Find("title").First().Text(),
	), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
