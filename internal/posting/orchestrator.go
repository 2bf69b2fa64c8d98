// Package posting drives a single posting run: lock, load history, select,
// then format, publish and record each item in order.
package posting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
	"github.com/samvad-hq/samvad-social-poster/internal/logger"
	"github.com/samvad-hq/samvad-social-poster/internal/selection"
)

// RunOptions configures one run.
type RunOptions struct {
	Mode  selection.Mode
	Limit int
	// Delay is the minimum spacing between consecutive publisher calls.
	Delay  time.Duration
	DryRun bool
}

// Orchestrator runs posting passes against a history store.
type Orchestrator struct {
	store     HistoryStore
	formatter Formatter
	publisher Publisher
	locker    Locker
	log       logger.Logger

	now   func() time.Time
	runID func() string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLocker sets the run lock. Without one, runs are not guarded.
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) { o.locker = l }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) { o.log = logger.Ensure(log) }
}

// WithClock overrides the clock used for postedAt.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRunID overrides run id generation.
func WithRunID(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.runID = gen
		}
	}
}

// New wires an orchestrator.
func New(store HistoryStore, formatter Formatter, publisher Publisher, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, fmt.Errorf("history store is required")
	}
	if formatter == nil {
		return nil, fmt.Errorf("formatter is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	o := &Orchestrator{
		store:     store,
		formatter: formatter,
		publisher: publisher,
		log:       &logger.NopLogger{},
		now:       time.Now,
		runID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunOnce executes exactly one posting run over candidates.
//
// Lock contention and unreadable history abort the run before anything is
// published. Per-item format and publish failures are counted and logged; in
// threaded-reply mode the first publish failure ends the run because later
// items would have no parent to reply to. Cancelling ctx stops the run between
// items and keeps everything already recorded.
func (o *Orchestrator) RunOnce(ctx context.Context, candidates []domain.CandidateItem, opts RunOptions) (RunResult, error) {
	res := RunResult{
		State:      StateNotStarted,
		Candidates: len(candidates),
		DryRun:     opts.DryRun,
	}
	if o == nil {
		res.State = StateAborted
		return res, fmt.Errorf("orchestrator is not initialized")
	}
	res.RunID = o.runID()

	policy := selection.Policy{Mode: opts.Mode, Limit: opts.Limit}
	if err := policy.Validate(); err != nil {
		res.State = StateAborted
		return res, err
	}
	if policy.Mode == "" {
		policy.Mode = selection.ModeBatch
	}
	opts.Mode = policy.Mode

	if o.locker != nil {
		release, err := o.locker.Acquire(ctx)
		if err != nil {
			return o.abort(res, fmt.Errorf("acquire run lock: %w", err))
		}
		defer func() {
			if err := release(); err != nil {
				o.log.WarnObj("release run lock failed", "run_lock", map[string]any{
					"run_id": res.RunID,
					"error":  err.Error(),
				})
			}
		}()
	}

	hist, err := o.store.Load()
	if err != nil {
		if !errors.IsAny(err, errors.ErrCorruptState, errors.ErrStateUnavailable) {
			err = errors.Mark(err, errors.ErrStateUnavailable)
		}
		return o.abort(res, fmt.Errorf("load history: %w", err))
	}
	res.State = StateHistoryLoaded
	historyMeta := map[string]any{
		"run_id":  res.RunID,
		"records": hist.Len(),
	}
	if last, ok := hist.Last(); ok {
		historyMeta["last_key"] = last.NaturalKey
		historyMeta["last_posted_at"] = last.PostedAt
	}
	o.log.DebugObj("history loaded", "run_history", historyMeta)

	res.State = StateSelecting
	selected := policy.Select(candidates, hist)
	res.Selected = len(selected)
	res.Skipped = len(candidates) - len(selected)
	o.log.InfoObj("candidates selected", "run_selection", map[string]any{
		"run_id":     res.RunID,
		"mode":       policy.Mode.String(),
		"limit":      policy.Limit,
		"candidates": len(candidates),
		"selected":   len(selected),
		"dry_run":    opts.DryRun,
	})

	if len(selected) > 0 {
		res.State = StatePosting
		if err := o.post(ctx, selected, opts, &res); err != nil {
			return o.abort(res, err)
		}
	}

	res.State = StateCompleted
	o.log.InfoObj("run completed", "run_result", res)
	return res, nil
}

func (o *Orchestrator) post(ctx context.Context, selected []domain.CandidateItem, opts RunOptions, res *RunResult) error {
	var spacing *rate.Limiter
	if opts.Delay > 0 && !opts.DryRun {
		spacing = rate.NewLimiter(rate.Every(opts.Delay), 1)
	}
	threaded := opts.Mode.Threaded()
	var thread *domain.ThreadRef

	for i, item := range selected {
		remaining := len(selected) - i
		if ctx.Err() != nil {
			o.interrupt(res, remaining, ctx.Err())
			return nil
		}

		payload, err := o.formatter.Format(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				o.interrupt(res, remaining, ctx.Err())
				return nil
			}
			res.FormatFailed++
			o.log.WarnObj("format failed, skipping item", "item_error", map[string]any{
				"run_id":      res.RunID,
				"natural_key": item.NaturalKey,
				"error":       errors.Mark(err, errors.ErrFormat).Error(),
			})
			continue
		}

		if opts.DryRun {
			res.Previews = append(res.Previews, payload.Text)
			o.log.InfoObj("dry run, not publishing", "item_preview", map[string]any{
				"run_id":      res.RunID,
				"natural_key": item.NaturalKey,
				"text":        payload.Text,
			})
			continue
		}

		if threaded && thread != nil {
			ref := *thread
			payload.Thread = &ref
		}

		if spacing != nil {
			if err := spacing.Wait(ctx); err != nil {
				o.interrupt(res, remaining, err)
				return nil
			}
		}

		receipt, err := o.publisher.Publish(ctx, payload)
		if err != nil {
			if ctx.Err() != nil {
				o.interrupt(res, remaining, ctx.Err())
				return nil
			}
			res.PublishFailed++
			o.log.ErrorObj("publish failed", "item_error", map[string]any{
				"run_id":      res.RunID,
				"natural_key": item.NaturalKey,
				"error":       errors.Mark(err, errors.ErrPublish).Error(),
			})
			if threaded {
				res.NotAttempted = remaining - 1
				o.log.WarnObj("reply chain broken, halting run", "run_halt", map[string]any{
					"run_id":        res.RunID,
					"not_attempted": res.NotAttempted,
				})
				return nil
			}
			continue
		}

		rec := domain.PostedRecord{
			NaturalKey:   item.NaturalKey,
			PostedAt:     o.now().UTC(),
			PublishedID:  receipt.ID,
			DisplayTitle: item.DisplayTitle,
		}
		if err := o.store.Append(rec); err != nil {
			res.NotAttempted = remaining - 1
			if !errors.Is(err, errors.ErrStateUnavailable) {
				err = errors.Mark(err, errors.ErrStateUnavailable)
			}
			return fmt.Errorf("record %s after publish as %s: %w", item.NaturalKey, receipt.ID, err)
		}
		res.Posted++
		res.Records = append(res.Records, rec)
		o.log.InfoObj("item posted", "item_posted", map[string]any{
			"run_id":       res.RunID,
			"natural_key":  rec.NaturalKey,
			"published_id": rec.PublishedID,
		})

		if threaded {
			if thread == nil {
				thread = &domain.ThreadRef{Root: receipt, Parent: receipt}
			} else {
				thread.Parent = receipt
			}
		}
	}
	return nil
}

func (o *Orchestrator) interrupt(res *RunResult, remaining int, cause error) {
	res.Interrupted = true
	res.NotAttempted = remaining
	o.log.WarnObj("run interrupted", "run_interrupt", map[string]any{
		"run_id":        res.RunID,
		"not_attempted": remaining,
		"error":         cause.Error(),
	})
}

func (o *Orchestrator) abort(res RunResult, err error) (RunResult, error) {
	res.State = StateAborted
	o.log.ErrorObj("run aborted", "run_abort", map[string]any{
		"run_id": res.RunID,
		"error":  err.Error(),
		"posted": res.Posted,
	})
	return res, err
}
