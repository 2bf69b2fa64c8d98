package app

import (
	"fmt"

	"github.com/samvad-hq/samvad-social-poster/internal/config"
	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/history"
)

// PostedHistory loads the recorded posts, oldest first. tail > 0 keeps only
// the most recent tail records.
func PostedHistory(cfg *config.Config, tail int) ([]domain.PostedRecord, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	store, err := history.NewStore(cfg.StateType, cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("init history store: %w", err)
	}
	defer store.Close()

	h, err := store.Load()
	if err != nil {
		return nil, err
	}
	records := h.Records
	if tail > 0 && len(records) > tail {
		records = records[len(records)-tail:]
	}
	out := make([]domain.PostedRecord, len(records))
	copy(out, records)
	return out, nil
}
