package crawler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/pkg/sources"
)

// fakeFetcher returns preset items or an error.
type fakeFetcher struct {
	id    string
	items []domain.CandidateItem
	err   error
}

func (f *fakeFetcher) ID() string { return f.id }
func (f *fakeFetcher) Fetch(_ context.Context, _ sources.Source) ([]domain.CandidateItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

// fakeRegistry maps source id to a fetcher.
type fakeRegistry struct {
	fetchers map[string]sources.Fetcher
}

func (f *fakeRegistry) FetcherFor(cfg sources.Source) (sources.Fetcher, error) {
	fetcher, ok := f.fetchers[cfg.ID]
	if !ok {
		return nil, errors.New("missing fetcher")
	}
	return fetcher, nil
}

// fakeScraper fills empty titles with a prefix + key.
type fakeScraper struct {
	prefix string
}

func (f fakeScraper) Enrich(_ context.Context, _ sources.Source, items []domain.CandidateItem) []domain.CandidateItem {
	out := make([]domain.CandidateItem, len(items))
	for i, it := range items {
		if it.DisplayTitle == "" {
			it.DisplayTitle = f.prefix + it.NaturalKey
		}
		out[i] = it
	}
	return out
}

func item(key, title string) domain.CandidateItem {
	return domain.CandidateItem{NaturalKey: key, DisplayTitle: title}
}

func TestCollectMergesSourcesKeepingFirstOccurrence(t *testing.T) {
	reg := &fakeRegistry{fetchers: map[string]sources.Fetcher{
		"s1": &fakeFetcher{id: "s1", items: []domain.CandidateItem{item("a", "A"), item("b", "")}},
		"s2": &fakeFetcher{id: "s2", items: []domain.CandidateItem{item("b", "B again"), item("c", "C")}},
	}}
	svc := NewService(reg, fakeScraper{prefix: "og-"}, nil)

	items, err := svc.Collect(context.Background(), []sources.Source{{ID: "s1"}, {ID: "s2"}})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	var keys []string
	for _, it := range items {
		keys = append(keys, it.NaturalKey+"="+it.DisplayTitle)
	}
	if got := strings.Join(keys, ","); got != "a=A,b=og-b,c=C" {
		t.Fatalf("unexpected merge result %s", got)
	}
}

func TestCollectReturnsPartialResultsWithErrors(t *testing.T) {
	reg := &fakeRegistry{fetchers: map[string]sources.Fetcher{
		"bad":  &fakeFetcher{id: "bad", err: errors.New("timeout")},
		"good": &fakeFetcher{id: "good", items: []domain.CandidateItem{item("x", "X")}},
	}}
	svc := NewService(reg, nil, nil)

	items, err := svc.Collect(context.Background(), []sources.Source{{ID: "bad"}, {ID: "good"}, {ID: "unknown"}})
	if err == nil || !strings.Contains(err.Error(), "timeout") || !strings.Contains(err.Error(), "unknown") {
		t.Fatalf("expected joined errors, got %v", err)
	}
	if len(items) != 1 || items[0].NaturalKey != "x" {
		t.Fatalf("expected good source items, got %+v", items)
	}
}

func TestCollectDropsUntitledItemsWithoutScraper(t *testing.T) {
	reg := &fakeRegistry{fetchers: map[string]sources.Fetcher{
		"s": &fakeFetcher{id: "s", items: []domain.CandidateItem{item("a", ""), item("b", "B")}},
	}}
	items, err := NewService(reg, nil, nil).Collect(context.Background(), []sources.Source{{ID: "s"}})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(items) != 1 || items[0].NaturalKey != "b" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestCollectStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := &fakeRegistry{fetchers: map[string]sources.Fetcher{"s": &fakeFetcher{id: "s"}}}
	_, err := NewService(reg, nil, nil).Collect(ctx, []sources.Source{{ID: "s"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCollectRequiresSources(t *testing.T) {
	svc := NewService(&fakeRegistry{}, nil, nil)
	if _, err := svc.Collect(context.Background(), nil); err == nil {
		t.Fatalf("expected error when sources list empty")
	}

	var nilSvc *Service
	if _, err := nilSvc.Collect(context.Background(), []sources.Source{{ID: "s"}}); err == nil {
		t.Fatalf("expected error from nil service")
	}
}
