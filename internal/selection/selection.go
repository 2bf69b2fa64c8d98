// Package selection decides which candidates qualify for posting in a run.
package selection

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// Mode is the posting mode of a run.
type Mode string

const (
	// ModeBatch posts up to Limit unposted items per run.
	ModeBatch Mode = "batch"
	// ModeSingleFIFO posts exactly one unposted item per run, in candidate order.
	ModeSingleFIFO Mode = "single-fifo"
	// ModeThreadedReply selects like ModeBatch but items are published as a reply chain.
	ModeThreadedReply Mode = "threaded-reply"
)

// ParseMode validates raw as a posting mode. Empty input selects ModeBatch.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeBatch, nil
	case ModeBatch, ModeSingleFIFO, ModeThreadedReply:
		return m, nil
	default:
		return "", errors.Mark(fmt.Errorf("unknown post mode %q (want batch, single-fifo or threaded-reply)", raw), errors.ErrInvalidArgument)
	}
}

// String implements fmt.Stringer.
func (m Mode) String() string { return string(m) }

// Threaded reports whether items in this mode form a reply chain.
func (m Mode) Threaded() bool { return m == ModeThreadedReply }

// Membership answers whether a natural key has already been posted.
type Membership interface {
	Contains(naturalKey string) bool
}

// SelectNext returns candidates whose keys are not in posted, in their
// original order, truncated to at most limit items. A key that repeats within
// candidates is only returned once (first occurrence).
func SelectNext(candidates []domain.CandidateItem, posted Membership, limit int) []domain.CandidateItem {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}

	selected := make([]domain.CandidateItem, 0, min(limit, len(candidates)))
	seen := make(map[string]struct{}, len(candidates))
	for _, item := range candidates {
		key := item.NaturalKey
		if strings.TrimSpace(key) == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if posted != nil && posted.Contains(key) {
			continue
		}
		selected = append(selected, item)
		if len(selected) == limit {
			break
		}
	}
	return selected
}

// Policy binds a mode to its limit.
type Policy struct {
	Mode  Mode
	Limit int
}

// Select applies the policy. Single-FIFO ignores Limit and yields at most one item.
func (p Policy) Select(candidates []domain.CandidateItem, posted Membership) []domain.CandidateItem {
	limit := p.Limit
	if p.Mode == ModeSingleFIFO {
		limit = 1
	}
	return SelectNext(candidates, posted, limit)
}

// Validate checks the policy for a usable mode and a non-negative limit.
func (p Policy) Validate() error {
	if _, err := ParseMode(string(p.Mode)); err != nil {
		return err
	}
	if p.Limit < 0 {
		return errors.Mark(fmt.Errorf("limit must be >= 0, got %d", p.Limit), errors.ErrInvalidArgument)
	}
	return nil
}
