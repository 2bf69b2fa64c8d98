package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

func record(key string, at time.Time) domain.PostedRecord {
	return domain.PostedRecord{
		NaturalKey:   key,
		PostedAt:     at,
		PublishedID:  "id-" + key,
		DisplayTitle: "title " + key,
	}
}

func TestJSONStoreLoadMissingFileIsEmpty(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "state", "history.json"))

	hist, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, hist.Len())
	assert.Nil(t, hist.LastUpdated)
	assert.False(t, store.Contains("https://example.com/a"))
}

func TestJSONStoreAppendIsDurableBeforeReturn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	store := NewJSONStore(path)
	_, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Append(record("a", now)))
	require.NoError(t, store.Append(record("b", now.Add(time.Minute))))
	assert.True(t, store.Contains("a"))

	// A fresh store stands in for a restarted process.
	reopened := NewJSONStore(path)
	hist, err := reopened.Load()
	require.NoError(t, err)
	require.Equal(t, 2, hist.Len())
	assert.Equal(t, "a", hist.Records[0].NaturalKey)
	assert.Equal(t, "b", hist.Records[1].NaturalKey)
	require.NotNil(t, hist.LastUpdated)
	assert.True(t, hist.LastUpdated.Equal(now.Add(time.Minute)))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestJSONStoreWritesDocumentedLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := NewJSONStore(path)
	require.NoError(t, store.Append(record("https://jobs.example/1", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "2026-01-02T03:04:05Z", doc["lastUpdated"])
	records := doc["records"].([]any)
	require.Len(t, records, 1)
	rec := records[0].(map[string]any)
	assert.Equal(t, "https://jobs.example/1", rec["naturalKey"])
	assert.Equal(t, "2026-01-02T03:04:05Z", rec["postedAt"])
	assert.Equal(t, "id-https://jobs.example/1", rec["publishedId"])
	assert.Equal(t, "title https://jobs.example/1", rec["displayTitle"])
}

func TestJSONStoreLoadCorruptFailsClosed(t *testing.T) {
	tests := map[string]string{
		"invalid json":  `{"records": [`,
		"empty file":    ``,
		"array":         `[]`,
		"empty key":     `{"records":[{"naturalKey":"","postedAt":"2026-01-01T00:00:00Z"}],"lastUpdated":null}`,
		"duplicate key": `{"records":[{"naturalKey":"a","postedAt":"2026-01-01T00:00:00Z"},{"naturalKey":"a","postedAt":"2026-01-01T00:00:00Z"}]}`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

			store := NewJSONStore(path)
			_, err := store.Load()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCorruptState))

			err = store.Append(record("z", time.Now()))
			assert.True(t, errors.Is(err, errors.ErrCorruptState), "append must not overwrite corrupt state")

			raw, readErr := os.ReadFile(path)
			require.NoError(t, readErr)
			assert.Equal(t, content, string(raw))
		})
	}
}

func TestJSONStoreLoadAcceptsNullLastUpdated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"records": [], "lastUpdated": null}`), 0o600))

	hist, err := NewJSONStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 0, hist.Len())
}

func TestJSONStoreRejectsDuplicateAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	store := NewJSONStore(path)
	now := time.Now().UTC()
	require.NoError(t, store.Append(record("a", now)))

	err := store.Append(record("a", now.Add(time.Second)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicateRecord))

	hist, err := NewJSONStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, 1, hist.Len())
}

func TestJSONStoreUnreadablePathIsUnavailable(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be cannot be read as a document.
	path := filepath.Join(dir, "history.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := NewJSONStore(path).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStateUnavailable))
}

func TestJSONStoreFailedPersistKeepsPreviousHistory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	store := NewJSONStore(path)
	require.NoError(t, store.Append(record("a", time.Now().UTC())))

	// Replace the target with a non-empty directory so the rename fails.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "blocker"), 0o755))

	err := store.Append(record("b", time.Now().UTC()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStateUnavailable))
	assert.True(t, store.Contains("a"))
	assert.False(t, store.Contains("b"))
}
