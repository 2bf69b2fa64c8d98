// Package formatters turns candidate items into ready-to-publish posts.
package formatters

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// Formatter renders one candidate as a payload.
type Formatter interface {
	Format(ctx context.Context, item domain.CandidateItem) (domain.Payload, error)
}

// Supported formatter kinds.
const (
	KindTemplate = "template"
	KindLLM      = "llm"
)

// DefaultMaxRunes is the post length limit shared by the supported platforms.
const DefaultMaxRunes = 280

// Options configures New.
type Options struct {
	MaxRunes int

	// Template formatter.
	Intros   []string
	Hashtags []string
	Rand     Rand

	// LLM formatter.
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

// New builds the formatter for kind.
func New(kind string, opts Options) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", KindTemplate:
		return NewTemplate(opts), nil
	case KindLLM:
		return NewLLM(opts)
	default:
		return nil, errors.Mark(fmt.Errorf("unknown formatter type %q", kind), errors.ErrConfig)
	}
}

func formatErr(format string, args ...any) error {
	return errors.Mark(fmt.Errorf(format, args...), errors.ErrFormat)
}

// itemLink returns the link to put in a post.
func itemLink(item domain.CandidateItem) string {
	if link := strings.TrimSpace(item.Attribute(domain.AttrLink)); link != "" {
		return link
	}
	return item.NaturalKey
}

// itemMedia returns the image attached to item. A media attribute naming a
// file that cannot be used fails formatting, so the item stays eligible.
func itemMedia(item domain.CandidateItem) (string, error) {
	path := strings.TrimSpace(item.Attribute(domain.AttrMedia))
	if path == "" {
		return "", nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Mark(fmt.Errorf("media for %s: %w", item.NaturalKey, err), errors.ErrFormat)
	}
	if info.IsDir() {
		return "", formatErr("media for %s: %s is a directory", item.NaturalKey, path)
	}
	return path, nil
}

// truncate shortens s to max runes, ending with "..." when cut.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	r := []rune(s)
	return strings.TrimRightFunc(string(r[:max-3]), isSpace) + "..."
}

func isSpace(r rune) bool { return r == ' ' || r == '\n' || r == '\t' }
