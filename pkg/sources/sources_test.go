package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadRegistryYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sources.yaml")
	content := `
sources:
  - id: hn
    name: Hacker News
    type: html
    source_url: https://news.ycombinator.com/
    request_delay_ms: 750
    config:
      item_selectors:
        - "span.titleline > a"
        - "a.storylink"
      limit: 5
  - id: jobs
    type: candidates_file
    source_url: ./data/candidates.json
    enabled: false
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}

	if got := len(reg.All()); got != 2 {
		t.Fatalf("expected 2 sources, got %d", got)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "hn" {
		t.Fatalf("unexpected enabled sources: %+v", enabled)
	}

	hn, ok := reg.ByID("hn")
	if !ok {
		t.Fatalf("expected source id hn to be loaded")
	}
	if hn.RequestDelay() != 750*time.Millisecond {
		t.Fatalf("unexpected request delay: %v", hn.RequestDelay())
	}
	if sels := ConfigStrings(hn, ConfigItemSelectorsKey); len(sels) != 2 || sels[0] != "span.titleline > a" {
		t.Fatalf("unexpected selectors: %v", sels)
	}
	if ConfigInt(hn, ConfigLimitKey, 0) != 5 {
		t.Fatalf("unexpected limit")
	}

	jobs, _ := reg.ByID("jobs")
	if jobs.Name != "jobs" {
		t.Fatalf("name should default to id, got %q", jobs.Name)
	}
	if jobs.RequestDelay() != 500*time.Millisecond {
		t.Fatalf("default request delay not applied: %v", jobs.RequestDelay())
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "sources.json")
	content := `{"sources":[{"id":"news","type":"sitemap","source_url":"https://example.com/news.xml"}]}`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}
	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if s, ok := reg.ByID("news"); !ok || s.Type != TypeSitemap {
		t.Fatalf("unexpected source: %+v", s)
	}
}

func TestParseRegistryValidation(t *testing.T) {
	tests := map[string]string{
		"duplicate id": `
sources:
  - {id: dup, type: sitemap, source_url: https://a.example}
  - {id: dup, type: sitemap, source_url: https://b.example}
`,
		"missing type":      "sources:\n  - {id: x, source_url: https://a.example}\n",
		"missing url":       "sources:\n  - {id: x, type: sitemap}\n",
		"html no selectors": "sources:\n  - {id: x, type: html, source_url: https://a.example}\n",
		"empty":             "sources: []\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRegistry([]byte(content), ".yaml"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadRegistryEmptyPath(t *testing.T) {
	if _, err := LoadRegistry("  "); err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty path error, got %v", err)
	}
}
