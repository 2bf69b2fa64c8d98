// Package history persists the posted-item history that drives deduplication.
package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// History is the ordered, append-only record of posted items.
// Records are kept in chronological post order.
type History struct {
	Records     []domain.PostedRecord
	LastUpdated *time.Time

	index map[string]struct{}
}

// New builds a History from records, rejecting empty or repeated keys.
func New(records []domain.PostedRecord, lastUpdated *time.Time) (*History, error) {
	h := &History{
		Records:     make([]domain.PostedRecord, 0, len(records)),
		LastUpdated: lastUpdated,
		index:       make(map[string]struct{}, len(records)),
	}
	for i, rec := range records {
		if strings.TrimSpace(rec.NaturalKey) == "" {
			return nil, fmt.Errorf("records[%d]: empty naturalKey", i)
		}
		if _, dup := h.index[rec.NaturalKey]; dup {
			return nil, fmt.Errorf("records[%d]: duplicate naturalKey %q", i, rec.NaturalKey)
		}
		h.index[rec.NaturalKey] = struct{}{}
		h.Records = append(h.Records, rec)
	}
	return h, nil
}

// Empty returns a history with no records, the first-run state.
func Empty() *History {
	return &History{index: map[string]struct{}{}}
}

// Contains reports whether key has already been posted.
func (h *History) Contains(key string) bool {
	if h == nil || h.index == nil {
		return false
	}
	_, ok := h.index[key]
	return ok
}

// Len returns the number of records.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.Records)
}

// Last returns the most recent record, if any.
func (h *History) Last() (domain.PostedRecord, bool) {
	if h.Len() == 0 {
		return domain.PostedRecord{}, false
	}
	return h.Records[len(h.Records)-1], true
}

// with returns a copy of h extended by rec. h itself is not modified so a
// failed persist leaves the in-memory view untouched.
func (h *History) with(rec domain.PostedRecord) (*History, error) {
	if err := validateRecord(rec); err != nil {
		return nil, err
	}
	if h.Contains(rec.NaturalKey) {
		return nil, errors.Mark(fmt.Errorf("append %q", rec.NaturalKey), errors.ErrDuplicateRecord)
	}

	next := &History{
		Records: make([]domain.PostedRecord, 0, h.Len()+1),
		index:   make(map[string]struct{}, h.Len()+1),
	}
	if h != nil {
		next.Records = append(next.Records, h.Records...)
		for k := range h.index {
			next.index[k] = struct{}{}
		}
	}
	next.Records = append(next.Records, rec)
	next.index[rec.NaturalKey] = struct{}{}
	updated := rec.PostedAt
	next.LastUpdated = &updated
	return next, nil
}

func validateRecord(rec domain.PostedRecord) error {
	if strings.TrimSpace(rec.NaturalKey) == "" {
		return fmt.Errorf("posted record has empty naturalKey")
	}
	if rec.PostedAt.IsZero() {
		return fmt.Errorf("posted record %q has no postedAt", rec.NaturalKey)
	}
	return nil
}
