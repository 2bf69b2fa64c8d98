package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samvad-hq/samvad-social-poster/internal/candidates"
	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/pkg/httpclient"
)

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

func fetchBody(ctx context.Context, client httpclient.Client, rawURL, sourceID string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, rawURL, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sourceID, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d body: %s", sourceID, resp.StatusCode(), responseSnippet(body))
	}
	return body, nil
}

// resolveLink makes href absolute against base.
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}

// newItem builds a candidate keyed by the canonical form of link.
func newItem(cfg Source, title, link, company string) (domain.CandidateItem, bool) {
	key := candidates.CanonicalKey(link)
	if key == "" {
		return domain.CandidateItem{}, false
	}
	attrs := map[string]string{
		domain.AttrLink:   link,
		domain.AttrSource: cfg.ID,
	}
	if company = strings.TrimSpace(company); company == "" {
		company = ConfigString(cfg, ConfigCompanyKey, "")
	}
	if company != "" {
		attrs[domain.AttrCompany] = company
	}
	return domain.CandidateItem{
		NaturalKey:   key,
		DisplayTitle: strings.Join(strings.Fields(title), " "),
		Attributes:   attrs,
	}, true
}

// limitItems truncates items to the configured limit (0 means no limit).
func limitItems(cfg Source, items []domain.CandidateItem, fallback int) []domain.CandidateItem {
	limit := ConfigInt(cfg, ConfigLimitKey, fallback)
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
