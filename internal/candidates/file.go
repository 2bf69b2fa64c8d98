// Package candidates reads and writes the candidate document exchanged
// between the scrape and run steps.
package candidates

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

// Metadata describes a candidate document.
type Metadata struct {
	TotalCandidates int `json:"totalCandidates"`
}

// Document is the candidate file layout.
type Document struct {
	Metadata Metadata               `json:"metadata"`
	Items    []domain.CandidateItem `json:"items"`
}

// legacyEntry is one row of the older scraper outputs ({"jobs": [...]} and
// {"articles": [...]}).
type legacyEntry struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Company string `json:"company"`
}

type rawDocument struct {
	Metadata json.RawMessage        `json:"metadata"`
	Items    []domain.CandidateItem `json:"items"`
	Jobs     []legacyEntry          `json:"jobs"`
	Articles []legacyEntry          `json:"articles"`
}

// Decode parses a candidate document. Keys are canonicalized and items
// without a usable key are dropped. Order is preserved.
func Decode(data []byte) ([]domain.CandidateItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("candidate document is empty")
	}

	var raw rawDocument
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("decode candidate document: %w", err)
	}

	out := make([]domain.CandidateItem, 0, len(raw.Items)+len(raw.Jobs)+len(raw.Articles))
	for _, item := range raw.Items {
		if n, ok := Normalize(item); ok {
			out = append(out, n)
		}
	}
	for _, job := range raw.Jobs {
		if n, ok := Normalize(job.item("linkedin")); ok {
			out = append(out, n)
		}
	}
	for _, art := range raw.Articles {
		if n, ok := Normalize(art.item("news")); ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (e legacyEntry) item(source string) domain.CandidateItem {
	attrs := map[string]string{
		domain.AttrLink:   strings.TrimSpace(e.Link),
		domain.AttrSource: source,
	}
	if c := strings.TrimSpace(e.Company); c != "" {
		attrs[domain.AttrCompany] = c
	}
	return domain.CandidateItem{
		NaturalKey:   e.Link,
		DisplayTitle: e.Title,
		Attributes:   attrs,
	}
}

// Normalize canonicalizes the key, trims the title and fills the link
// attribute. It reports false for items with no key.
func Normalize(item domain.CandidateItem) (domain.CandidateItem, bool) {
	link := strings.TrimSpace(item.Attribute(domain.AttrLink))
	if link == "" {
		link = strings.TrimSpace(item.NaturalKey)
	}
	key := CanonicalKey(item.NaturalKey)
	if key == "" {
		key = CanonicalKey(link)
	}
	if key == "" {
		return domain.CandidateItem{}, false
	}

	attrs := make(map[string]string, len(item.Attributes)+1)
	for k, v := range item.Attributes {
		attrs[k] = v
	}
	if link != "" {
		attrs[domain.AttrLink] = link
	}

	return domain.CandidateItem{
		NaturalKey:   key,
		DisplayTitle: strings.Join(strings.Fields(item.DisplayTitle), " "),
		Attributes:   attrs,
	}, true
}

// LoadFile reads and decodes the candidate document at path.
func LoadFile(path string) ([]domain.CandidateItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates %s: %w", path, err)
	}
	items, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// Encode renders items as a candidate document.
func Encode(items []domain.CandidateItem) ([]byte, error) {
	if items == nil {
		items = []domain.CandidateItem{}
	}
	doc := Document{
		Metadata: Metadata{TotalCandidates: len(items)},
		Items:    items,
	}
	return json.MarshalIndent(doc, "", "  ")
}

// WriteFile writes items to path, replacing it atomically.
func WriteFile(path string, items []domain.CandidateItem) error {
	data, err := Encode(items)
	if err != nil {
		return fmt.Errorf("encode candidates: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create candidates directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write candidates: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close candidates: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace candidates %s: %w", path, err)
	}
	return nil
}
