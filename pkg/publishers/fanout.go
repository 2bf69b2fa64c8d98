package publishers

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// TypeFanout is reported by Fanout.Type.
const TypeFanout = "fanout"

// Fanout publishes to a primary publisher and mirrors the post to the rest.
// Only the primary decides success; mirror failures are logged.
type Fanout struct {
	primary Publisher
	mirrors []Publisher
	log     Logger
}

// NewFanout builds a dispatcher around primary and mirrors.
func NewFanout(primary Publisher, mirrors []Publisher, log Logger) *Fanout {
	cp := make([]Publisher, 0, len(mirrors))
	for _, p := range mirrors {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	return &Fanout{primary: primary, mirrors: cp, log: ensureLogger(log)}
}

// ID returns the primary publisher id.
func (f *Fanout) ID() string {
	if f == nil || f.primary == nil {
		return ""
	}
	return f.primary.ID()
}

func (f *Fanout) Type() string { return TypeFanout }

// Publish sends p to the primary and returns its receipt. Mirrors receive
// the post without thread references, which only mean something on the
// primary's platform.
func (f *Fanout) Publish(ctx context.Context, p domain.Payload) (domain.Receipt, error) {
	if f == nil || f.primary == nil {
		return domain.Receipt{}, errors.Mark(fmt.Errorf("no primary publisher configured"), errors.ErrPublish)
	}

	receipt, err := f.primary.Publish(ctx, p)
	if err != nil {
		return domain.Receipt{}, errors.Mark(
			fmt.Errorf("%s publisher[%s]: %w", f.primary.Type(), f.primary.ID(), err), errors.ErrPublish)
	}
	if receipt.ID == "" {
		return domain.Receipt{}, errors.Mark(
			fmt.Errorf("%s publisher[%s] returned an empty id", f.primary.Type(), f.primary.ID()), errors.ErrPublish)
	}

	mirrored := p
	mirrored.Thread = nil
	for _, m := range f.mirrors {
		if _, err := m.Publish(ctx, mirrored); err != nil {
			f.log.WarnObj("mirror publish failed", "publisher_mirror_error", map[string]any{
				"publisher_id":   m.ID(),
				"publisher_type": m.Type(),
				"natural_key":    p.Item.NaturalKey,
				"error":          err.Error(),
			})
			continue
		}
		f.log.DebugObj("mirror publish delivered", "publisher_mirror_delivery", map[string]any{
			"publisher_id": m.ID(),
			"natural_key":  p.Item.NaturalKey,
		})
	}
	return receipt, nil
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil || f.primary == nil {
		return 0
	}
	return 1 + len(f.mirrors)
}

// Close releases publishers that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range append([]Publisher{f.primary}, f.mirrors...) {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close publisher %s: %w", p.ID(), err))
			}
		}
	}
	return stderrors.Join(errs...)
}
