package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-social-poster/internal/candidates"
	"github.com/samvad-hq/samvad-social-poster/internal/config"
	"github.com/samvad-hq/samvad-social-poster/internal/crawler"
	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
	"github.com/samvad-hq/samvad-social-poster/internal/logger"
	"github.com/samvad-hq/samvad-social-poster/pkg/sources"
)

// Collector produces the candidate list for a run, either from a candidate
// document on disk or by crawling the configured sources.
type Collector struct {
	cfg          *config.Config
	sourceReg    *sources.Registry
	crawlService *crawler.Service
	log          logger.Logger
}

// NewCollector builds a collector. The sources registry is only loaded when
// no candidates file is configured.
func NewCollector(cfg *config.Config, log logger.Logger) (*Collector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	c := &Collector{cfg: cfg, log: log}
	if cfg.CandidatesFile != "" {
		return c, nil
	}
	if err := c.loadSources(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collector) loadSources() error {
	sourceReg, err := sources.LoadRegistry(c.cfg.SourcesFile)
	if err != nil {
		return errors.Mark(fmt.Errorf("load sources registry: %w", err), errors.ErrConfig)
	}
	enabled := sourceReg.Enabled()
	ids := make([]string, 0, len(enabled))
	for _, s := range enabled {
		ids = append(ids, s.ID)
	}
	c.log.InfoObj("sources registry loaded", "sources_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	client := sources.DefaultHTTPClient()
	c.sourceReg = sourceReg
	c.crawlService = crawler.NewService(sources.DefaultFetcherRegistry(client), crawler.NewScraper(client, c.log), c.log)
	return nil
}

// Collect returns this run's candidates. Failing sources are logged and
// skipped as long as at least one source produced items.
func (c *Collector) Collect(ctx context.Context) ([]domain.CandidateItem, error) {
	if c == nil {
		return nil, fmt.Errorf("collector is not initialized")
	}
	if c.cfg.CandidatesFile != "" {
		items, err := candidates.LoadFile(c.cfg.CandidatesFile)
		if err != nil {
			return nil, fmt.Errorf("load candidates: %w", err)
		}
		c.log.InfoObj("candidates loaded", "candidates_meta", map[string]any{
			"file":  c.cfg.CandidatesFile,
			"count": len(items),
		})
		return items, nil
	}
	return c.crawl(ctx)
}

func (c *Collector) crawl(ctx context.Context) ([]domain.CandidateItem, error) {
	enabled := c.sourceReg.Enabled()
	if len(enabled) == 0 {
		c.log.WarnObj("no sources enabled; nothing to collect", "sources_file", c.cfg.SourcesFile)
		return nil, nil
	}

	start := time.Now()
	items, err := c.crawlService.Collect(ctx, enabled)
	if err != nil {
		if ctx.Err() != nil || len(items) == 0 {
			return nil, fmt.Errorf("collect candidates: %w", err)
		}
		c.log.WarnObj("some sources failed", "collect_error", err.Error())
	}
	c.log.InfoObj("crawl completed", "crawl_meta", map[string]any{
		"sources_count": len(enabled),
		"items":         len(items),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return items, nil
}

// Scrape crawls the sources and writes the candidate document to out.
func (c *Collector) Scrape(ctx context.Context, out string) (int, error) {
	if c.sourceReg == nil {
		if err := c.loadSources(); err != nil {
			return 0, err
		}
	}
	items, err := c.crawl(ctx)
	if err != nil {
		return 0, err
	}
	if err := candidates.WriteFile(out, items); err != nil {
		return 0, fmt.Errorf("write candidates: %w", err)
	}
	c.log.InfoObj("candidates written", "scrape_meta", map[string]any{
		"file":  out,
		"count": len(items),
	})
	return len(items), nil
}
