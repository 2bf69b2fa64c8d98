package publishers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
	if enabled[0].HTTP.Method != "POST" || enabled[0].HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http defaults not applied: %#v", enabled[0].HTTP)
	}
}

func TestParseRegistryAppliesPlatformDefaults(t *testing.T) {
	raw := `{"publishers":[
		{"id":"bsky","type":"bluesky","primary":true},
		{"id":"tg","type":"telegram","telegram":{"chat_id":-100123}}
	]}`
	reg, err := ParseRegistry([]byte(raw), ".json")
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}

	bsky, ok := reg.ByID("bsky")
	if !ok || bsky.Bluesky == nil {
		t.Fatalf("bluesky entry missing: %#v", bsky)
	}
	if bsky.Bluesky.Host != blueskyDefaultHost || bsky.Bluesky.HandleEnv != blueskyDefaultHandleEnv || bsky.Bluesky.PasswordEnv != blueskyDefaultPasswordEnv {
		t.Fatalf("bluesky defaults not applied: %#v", bsky.Bluesky)
	}
	tg, _ := reg.ByID("tg")
	if tg.Telegram.TokenEnv != telegramDefaultTokenEnv {
		t.Fatalf("telegram token env default not applied: %#v", tg.Telegram)
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	disabled := false
	cases := map[string]PublisherConfig{
		"missing http":       {ID: "h1", Type: TypeHTTP},
		"missing sqs region": {ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "https://q"}},
		"missing sns topic":  {ID: "n", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "us-east-1"}},
		"missing topic":      {ID: "p", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "proj"}},
		"missing chat":       {ID: "t", Type: TypeTelegram, Telegram: &TelegramPublisherConfig{}},
		"unknown type":       {ID: "x", Type: "myspace"},
		"disabled primary":   {ID: "b", Type: TypeBluesky, Primary: true, Enabled: &disabled},
	}
	for name, cfg := range cases {
		if err := validatePublisherConfig(sanitizePublisherConfig(cfg)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestParseRegistryErrorsAreConfigErrors(t *testing.T) {
	_, err := ParseRegistry([]byte(`publishers: [{id: a, type: http}]`), ".yaml")
	if !errors.Is(err, errors.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	_, err = ParseRegistry([]byte(`publishers:
  - {id: a, type: bluesky}
  - {id: a, type: bluesky}
`), ".yaml")
	if !errors.Is(err, errors.ErrConfig) {
		t.Fatalf("expected ErrConfig for duplicate ids, got %v", err)
	}
}

func TestSplitPrimaryAndMirrors(t *testing.T) {
	reg, err := ParseRegistry([]byte(`
publishers:
  - {id: hook, type: http, http: {url: "https://example.com"}}
  - {id: bsky, type: bluesky, primary: true}
  - {id: off, type: http, enabled: false, http: {url: "https://example.com/off"}}
`), ".yaml")
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}

	primary, mirrors, err := reg.Split()
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if primary.ID != "bsky" {
		t.Fatalf("expected bsky primary, got %s", primary.ID)
	}
	if len(mirrors) != 1 || mirrors[0].ID != "hook" {
		t.Fatalf("expected hook mirror only, got %#v", mirrors)
	}
}

func TestSplitRequiresSinglePrimary(t *testing.T) {
	single, _ := ParseRegistry([]byte(`publishers: [{id: hook, type: http, http: {url: "https://example.com"}}]`), ".yaml")
	if p, m, err := single.Split(); err != nil || p.ID != "hook" || len(m) != 0 {
		t.Fatalf("single enabled publisher should be primary: %v %v %v", p.ID, m, err)
	}

	none, _ := ParseRegistry([]byte(`
publishers:
  - {id: a, type: bluesky}
  - {id: b, type: http, http: {url: "https://example.com"}}
`), ".yaml")
	if _, _, err := none.Split(); !errors.Is(err, errors.ErrConfig) {
		t.Fatalf("expected ErrConfig without primary, got %v", err)
	}

	two, _ := ParseRegistry([]byte(`
publishers:
  - {id: a, type: bluesky, primary: true}
  - {id: b, type: http, primary: true, http: {url: "https://example.com"}}
`), ".yaml")
	if _, _, err := two.Split(); !errors.Is(err, errors.ErrConfig) {
		t.Fatalf("expected ErrConfig with two primaries, got %v", err)
	}
}
