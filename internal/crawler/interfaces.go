package crawler

import (
	"context"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/pkg/sources"
)

// ItemScraper fills in candidate metadata (e.g., OG titles) from the item pages.
type ItemScraper interface {
	Enrich(ctx context.Context, cfg sources.Source, items []domain.CandidateItem) []domain.CandidateItem
}
