package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/samvad-hq/samvad-social-poster/internal/candidates"
	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

// candidatesFileFetcher reads a candidate document written by an external
// scraper (source_url is a path or file:// URL).
type candidatesFileFetcher struct{}

// NewCandidatesFileFetcher returns the fetcher for TypeCandidatesFile.
func NewCandidatesFileFetcher() Fetcher {
	return candidatesFileFetcher{}
}

func (candidatesFileFetcher) ID() string { return TypeCandidatesFile }

func (candidatesFileFetcher) Fetch(ctx context.Context, cfg Source) ([]domain.CandidateItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := strings.TrimSpace(cfg.SourceURL)
	if strings.HasPrefix(path, "file://") {
		u, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("parse %s source_url: %w", cfg.ID, err)
		}
		path = u.Path
	}
	if path == "" {
		return nil, fmt.Errorf("source %q source_url is empty", cfg.ID)
	}

	items, err := candidates.LoadFile(path)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Attribute(domain.AttrSource) == "" {
			if items[i].Attributes == nil {
				items[i].Attributes = map[string]string{}
			}
			items[i].Attributes[domain.AttrSource] = cfg.ID
		}
	}
	return limitItems(cfg, items, 0), nil
}
