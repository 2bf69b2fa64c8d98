package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

const htmlDefaultLimit = 10

// htmlFetcher scrapes listing pages with CSS selectors. Each entry of
// config.item_selectors is one extraction strategy; they are tried in order
// and the first that produces at least one item wins.
type htmlFetcher struct {
	client HTTPClient
}

// NewHTMLFetcher builds the fetcher for TypeHTML.
func NewHTMLFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &htmlFetcher{client: client}
}

func (f *htmlFetcher) ID() string { return TypeHTML }

func (f *htmlFetcher) Fetch(ctx context.Context, cfg Source) ([]domain.CandidateItem, error) {
	if !strings.EqualFold(cfg.Type, TypeHTML) {
		return nil, fmt.Errorf("html fetcher received incompatible source type %q", cfg.Type)
	}
	base, err := url.Parse(cfg.SourceURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("source %q source_url %q is not an absolute URL", cfg.ID, cfg.SourceURL)
	}

	body, err := fetchBody(ctx, f.client, cfg.SourceURL, cfg.ID, Headers(cfg))
	if err != nil {
		return nil, err
	}

	items, err := extractHTML(cfg, base, body)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: no selector matched any items", cfg.ID)
	}
	return items, nil
}

func extractHTML(cfg Source, base *url.URL, body []byte) ([]domain.CandidateItem, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	for _, sel := range ConfigStrings(cfg, ConfigItemSelectorsKey) {
		items := extractWith(doc, sel, cfg, base)
		if len(items) > 0 {
			return limitItems(cfg, items, htmlDefaultLimit), nil
		}
	}
	return nil, nil
}

func extractWith(doc *goquery.Document, itemSel string, cfg Source, base *url.URL) []domain.CandidateItem {
	titleSel := ConfigString(cfg, ConfigTitleSelectorKey, "")
	linkSel := ConfigString(cfg, ConfigLinkSelectorKey, "")
	companySel := ConfigString(cfg, ConfigCompanySelectorKey, "")

	var items []domain.CandidateItem
	doc.Find(itemSel).Each(func(_ int, node *goquery.Selection) {
		title := strings.TrimSpace(node.Text())
		if titleSel != "" {
			title = strings.TrimSpace(node.Find(titleSel).First().Text())
		}

		href, ok := node.Attr("href")
		if linkSel != "" {
			href, ok = node.Find(linkSel).First().Attr("href")
		} else if !ok {
			href, ok = node.Find("a[href]").First().Attr("href")
		}
		if !ok {
			return
		}

		var company string
		if companySel != "" {
			company = strings.TrimSpace(node.Find(companySel).First().Text())
		}

		link := resolveLink(base, href)
		if title == "" || link == "" {
			return
		}
		if item, ok := newItem(cfg, title, link, company); ok {
			items = append(items, item)
		}
	})
	return items
}
