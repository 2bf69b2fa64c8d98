package app

import (
	"context"
	"fmt"
	"io"

	"github.com/samvad-hq/samvad-social-poster/internal/config"
	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
	"github.com/samvad-hq/samvad-social-poster/internal/history"
	"github.com/samvad-hq/samvad-social-poster/internal/lock"
	"github.com/samvad-hq/samvad-social-poster/internal/logger"
	"github.com/samvad-hq/samvad-social-poster/internal/posting"
	"github.com/samvad-hq/samvad-social-poster/internal/scheduler"
	"github.com/samvad-hq/samvad-social-poster/internal/secrets"
	"github.com/samvad-hq/samvad-social-poster/internal/selection"
	"github.com/samvad-hq/samvad-social-poster/pkg/formatters"
	"github.com/samvad-hq/samvad-social-poster/pkg/publishers"
)

// schedulerJobName identifies the posting job in scheduler logs.
const schedulerJobName = "post"

// Poster represents the social poster runtime. It wires the candidate
// collector, formatter, publishers and history store around the posting
// orchestrator.
type Poster struct {
	cfg          *config.Config
	collector    *Collector
	orchestrator *posting.Orchestrator
	publisher    io.Closer
	store        history.Store
	log          logger.Logger
}

// NewPoster builds a poster runtime from config files. Missing credentials
// and bad config files are reported as ErrConfig before anything runs.
func NewPoster(ctx context.Context, cfg *config.Config, log logger.Logger) (*Poster, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	collector, err := NewCollector(cfg, log)
	if err != nil {
		return nil, err
	}

	resolver := secrets.NewResolver(cfg.KeyringService)
	formatter, err := buildFormatter(cfg, resolver)
	if err != nil {
		return nil, fmt.Errorf("init formatter: %w", err)
	}

	var (
		pub    posting.Publisher = dryRunPublisher{}
		closer io.Closer
	)
	if !cfg.DryRun {
		publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
		if err != nil {
			return nil, fmt.Errorf("load publishers registry: %w", err)
		}
		fanout, err := publishers.BuildFanout(ctx, publishers.DefaultRegistry(), publisherReg, publishers.Deps{
			Log:     log,
			Secrets: resolver,
		})
		if err != nil {
			return nil, fmt.Errorf("build publishers: %w", err)
		}
		pub, closer = fanout, fanout

		summaries := make([]map[string]string, 0, len(publisherReg.Enabled()))
		for _, pubCfg := range publisherReg.Enabled() {
			summaries = append(summaries, map[string]string{
				"id":      pubCfg.ID,
				"type":    pubCfg.Type,
				"primary": fmt.Sprint(pubCfg.ID == fanout.ID()),
			})
		}
		log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
			"count":      len(summaries),
			"publishers": summaries,
		})
	}

	store, err := history.NewStore(cfg.StateType, cfg.StatePath)
	if err != nil {
		closeQuietly(closer, log)
		return nil, fmt.Errorf("init history store: %w", err)
	}
	log.InfoObj("history store initialized", "storage_config", map[string]any{
		"type":      cfg.StateType,
		"path":      cfg.StatePath,
		"lock_path": cfg.LockPath,
	})

	opts := []posting.Option{posting.WithLogger(log)}
	if cfg.LockPath != "" {
		opts = append(opts, posting.WithLocker(lock.New(cfg.LockPath)))
	}
	orchestrator, err := posting.New(store, formatter, pub, opts...)
	if err != nil {
		closeQuietly(closer, log)
		_ = store.Close()
		return nil, err
	}

	return &Poster{
		cfg:          cfg,
		collector:    collector,
		orchestrator: orchestrator,
		publisher:    closer,
		store:        store,
		log:          log,
	}, nil
}

func buildFormatter(cfg *config.Config, resolver *secrets.Resolver) (formatters.Formatter, error) {
	opts := formatters.Options{
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModel,
	}
	if cfg.FormatterType == formatters.KindLLM {
		key, err := resolver.Lookup(cfg.LLMAPIKeyEnv)
		if err != nil {
			return nil, err
		}
		opts.APIKey = key
	}
	return formatters.New(cfg.FormatterType, opts)
}

// RunOnce collects candidates and executes exactly one posting run.
func (p *Poster) RunOnce(ctx context.Context) (posting.RunResult, error) {
	if p == nil || p.orchestrator == nil {
		return posting.RunResult{}, fmt.Errorf("poster is not initialized")
	}

	items, err := p.collector.Collect(ctx)
	if err != nil {
		return posting.RunResult{State: posting.StateAborted}, err
	}

	mode, err := selection.ParseMode(p.cfg.PostMode)
	if err != nil {
		return posting.RunResult{State: posting.StateAborted}, err
	}

	res, err := p.orchestrator.RunOnce(ctx, items, posting.RunOptions{
		Mode:   mode,
		Limit:  p.cfg.PostLimit,
		Delay:  p.cfg.PostDelay,
		DryRun: p.cfg.DryRun,
	})
	p.log.InfoObj("run finished", "run_summary", res.Summary())
	return res, err
}

// Schedule runs RunOnce immediately and then on schedule_cron until ctx is
// cancelled. Failed runs are logged; the next tick retries.
func (p *Poster) Schedule(ctx context.Context) error {
	sched, err := scheduler.New(p.cfg.ScheduleTimezone, p.cfg.RunTimeout, p.log)
	if err != nil {
		return err
	}

	job := func(ctx context.Context) error {
		_, err := p.RunOnce(ctx)
		return err
	}
	if err := sched.AddJob(schedulerJobName, p.cfg.ScheduleCron, job); err != nil {
		return err
	}

	sched.Start(ctx)
	p.log.InfoObj("poster schedule starting", "scheduler_state", map[string]any{
		"cron":     p.cfg.ScheduleCron,
		"timezone": p.cfg.ScheduleTimezone,
		"jobs":     sched.ListJobs(),
	})

	if err := sched.RunNow(schedulerJobName, job); err != nil && !errors.Is(err, context.Canceled) {
		p.log.ErrorObj("initial run failed", "error", err.Error())
	}

	<-ctx.Done()
	p.log.InfoObj("poster schedule exiting", "reason", ctx.Err().Error())
	<-sched.Stop().Done()
	return nil
}

// Close releases the history store and publisher connections.
func (p *Poster) Close() error {
	if p == nil {
		return nil
	}
	closeQuietly(p.publisher, p.log)
	if p.store == nil {
		return nil
	}
	if err := p.store.Close(); err != nil {
		p.log.ErrorObj("history store close failed", "error", err.Error())
		return err
	}
	return nil
}

func closeQuietly(c io.Closer, log logger.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.WarnObj("publisher close failed", "error", err.Error())
	}
}

// dryRunPublisher stands in for the real publishers in dry runs, where the
// orchestrator never publishes.
type dryRunPublisher struct{}

func (dryRunPublisher) Publish(context.Context, domain.Payload) (domain.Receipt, error) {
	return domain.Receipt{}, errors.Mark(fmt.Errorf("publishing is disabled in dry run"), errors.ErrPublish)
}
