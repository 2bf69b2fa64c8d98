package publishers

import (
	"context"
	"testing"

	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

func TestBuildAllWithDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		sanitizePublisherConfig(PublisherConfig{ID: "http", Type: TypeHTTP, HTTP: &HTTPPublisherConfig{URL: "https://example.com"}}),
	}, Deps{})
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 || pubs[0].Type() != TypeHTTP {
		t.Fatalf("expected 1 http publisher, got %#v", pubs)
	}
}

func TestRegistryUnknownType(t *testing.T) {
	_, err := NewRegistry(nil).PublisherFor(context.Background(), PublisherConfig{ID: "x", Type: "fax"}, Deps{})
	if !errors.Is(err, errors.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestBuildFanoutFromConfig(t *testing.T) {
	cfgReg, err := ParseRegistry([]byte(`
publishers:
  - {id: primary-hook, type: http, primary: true, http: {url: "https://example.com/a"}}
  - {id: mirror-hook, type: http, http: {url: "https://example.com/b"}}
`), ".yaml")
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}

	fanout, err := BuildFanout(context.Background(), nil, cfgReg, Deps{})
	if err != nil {
		t.Fatalf("BuildFanout: %v", err)
	}
	if fanout.ID() != "primary-hook" || fanout.Size() != 2 {
		t.Fatalf("unexpected fanout %s size %d", fanout.ID(), fanout.Size())
	}
}

func TestBuildFanoutPropagatesMissingSecrets(t *testing.T) {
	cfgReg, err := ParseRegistry([]byte(`publishers: [{id: bsky, type: bluesky}]`), ".yaml")
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}
	_, err = BuildFanout(context.Background(), nil, cfgReg, Deps{})
	if !errors.Is(err, errors.ErrConfig) {
		t.Fatalf("expected ErrConfig without a secret source, got %v", err)
	}
}
