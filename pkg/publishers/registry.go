package publishers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg PublisherConfig, deps Deps) (Publisher, error)

// Registry maps publisher types to builders.
type Registry interface {
	Register(typ string, builder Builder)
	PublisherFor(ctx context.Context, cfg PublisherConfig, deps Deps) (Publisher, error)
}

type registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with optional pre-registered builders.
func NewRegistry(builders map[string]Builder) Registry {
	r := &registry{
		builders: make(map[string]Builder),
	}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// Register associates a builder with a publisher type.
func (r *registry) Register(typ string, builder Builder) {
	if typ = strings.TrimSpace(strings.ToLower(typ)); typ == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// PublisherFor returns the publisher built for the provided config.
func (r *registry) PublisherFor(ctx context.Context, cfg PublisherConfig, deps Deps) (Publisher, error) {
	if cfg.Type == "" {
		return nil, configErr("publisher %q has no type configured", cfg.ID)
	}

	r.mu.RLock()
	builder := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()

	if builder == nil {
		return nil, configErr("no publisher registered for type %q", cfg.Type)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return builder(ctx, cfg, deps)
}

// DefaultRegistry wires up known publishers.
func DefaultRegistry() Registry {
	builders := map[string]Builder{
		TypeBluesky:  newBlueskyPublisher,
		TypeTelegram: newTelegramPublisher,
		TypeHTTP:     newHTTPPublisher,
		TypeSQS:      newSQSPublisher,
		TypeSNS:      newSNSPublisher,
		TypePubSub:   newPubSubPublisher,
	}
	return NewRegistry(builders)
}

// BuildAll instantiates publishers for configs using the registry.
func BuildAll(ctx context.Context, reg Registry, cfgs []PublisherConfig, deps Deps) ([]Publisher, error) {
	if reg == nil || len(cfgs) == 0 {
		return nil, nil
	}

	var pubs []Publisher
	for _, cfg := range cfgs {
		pub, err := reg.PublisherFor(ctx, cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// BuildFanout builds the primary and mirror publishers declared in cfgReg.
func BuildFanout(ctx context.Context, reg Registry, cfgReg *ConfigRegistry, deps Deps) (*Fanout, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	primaryCfg, mirrorCfgs, err := cfgReg.Split()
	if err != nil {
		return nil, err
	}

	primary, err := reg.PublisherFor(ctx, primaryCfg, deps)
	if err != nil {
		return nil, fmt.Errorf("build primary publisher %q: %w", primaryCfg.ID, err)
	}
	mirrors, err := BuildAll(ctx, reg, mirrorCfgs, deps)
	if err != nil {
		return nil, err
	}
	return NewFanout(primary, mirrors, deps.Log), nil
}

// lookupSecret resolves envKey through deps, failing as a config error.
func lookupSecret(deps Deps, envKey string) (string, error) {
	if deps.Secrets == nil {
		return "", configErr("no secret source configured for %s", envKey)
	}
	v, err := deps.Secrets.Lookup(envKey)
	if err != nil {
		if errors.Is(err, errors.ErrConfig) {
			return "", err
		}
		return "", errors.Mark(err, errors.ErrConfig)
	}
	return v, nil
}
