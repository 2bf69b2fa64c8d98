// Package crawler collects candidate items from the configured sources.
package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/logger"
	"github.com/samvad-hq/samvad-social-poster/pkg/sources"
)

// Service coordinates collection across multiple sources.
type Service struct {
	registry sources.FetcherRegistry
	scraper  ItemScraper
	log      logger.Logger
}

// NewService wires a crawler with the source fetcher registry.
func NewService(reg sources.FetcherRegistry, scraper ItemScraper, log logger.Logger) *Service {
	return &Service{
		registry: reg,
		scraper:  scraper,
		log:      logger.Ensure(log),
	}
}

// Collect runs every source in order and merges their items, keeping the
// first occurrence of each natural key. Items from sources that succeed are
// returned even when others fail; the failures are joined into the error.
func (s *Service) Collect(ctx context.Context, cfgs []sources.Source) ([]domain.CandidateItem, error) {
	if s == nil || s.registry == nil {
		return nil, fmt.Errorf("crawler service is not initialized")
	}
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("no sources configured for crawling")
	}

	var (
		out  []domain.CandidateItem
		errs []error
		seen = make(map[string]struct{})
	)

	for _, cfg := range cfgs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		items, err := s.collectSource(ctx, cfg)
		if err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("source crawl failed", "source_error", map[string]any{
				"source_id": cfg.ID,
				"error":     err.Error(),
			})
			continue
		}

		added := 0
		for _, item := range items {
			if _, dup := seen[item.NaturalKey]; dup {
				continue
			}
			seen[item.NaturalKey] = struct{}{}
			out = append(out, item)
			added++
		}

		s.log.InfoObj("source crawl completed", "source_result", map[string]any{
			"source_id":       cfg.ID,
			"items_collected": len(items),
			"items_new":       added,
		})
	}

	return out, errors.Join(errs...)
}

func (s *Service) collectSource(ctx context.Context, cfg sources.Source) ([]domain.CandidateItem, error) {
	fetcher, err := s.registry.FetcherFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve fetcher for source %s: %w", cfg.ID, err)
	}

	items, err := fetcher.Fetch(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("fetch source %s: %w", cfg.ID, err)
	}

	if s.scraper != nil {
		items = s.scraper.Enrich(ctx, cfg, items)
	}

	// Items that are still untitled after enrichment cannot be formatted.
	kept := make([]domain.CandidateItem, 0, len(items))
	for _, item := range items {
		if item.DisplayTitle != "" {
			kept = append(kept, item)
		}
	}
	return kept, nil
}
