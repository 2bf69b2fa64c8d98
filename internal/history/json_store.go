package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// stateFile is the on-disk layout of the JSON store.
type stateFile struct {
	Records     []domain.PostedRecord `json:"records"`
	LastUpdated *time.Time            `json:"lastUpdated"`
}

// JSONStore keeps the history in a single JSON document that is replaced
// atomically on every append.
type JSONStore struct {
	path string

	mu     sync.Mutex
	hist   *History
	loaded bool
}

// NewJSONStore returns a store backed by the JSON document at path. The file
// is not touched until Load or Append.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file path.
func (s *JSONStore) Path() string { return s.path }

// Load reads the persisted history. A missing file is the first-run state and
// yields an empty history; a file that exists but cannot be parsed is an
// ErrCorruptState and is never replaced by an empty fallback.
func (s *JSONStore) Load() (*History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *JSONStore) loadLocked() (*History, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.hist = Empty()
			s.loaded = true
			return s.hist, nil
		}
		return nil, errors.Mark(fmt.Errorf("read history %s: %w", s.path, err), errors.ErrStateUnavailable)
	}

	hist, err := decodeState(raw)
	if err != nil {
		return nil, errors.Mark(fmt.Errorf("decode history %s: %w", s.path, err), errors.ErrCorruptState)
	}
	s.hist = hist
	s.loaded = true
	return hist, nil
}

func decodeState(raw []byte) (*History, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("expected a JSON object")
	}
	var state stateFile
	if err := json.Unmarshal(trimmed, &state); err != nil {
		return nil, err
	}
	return New(state.Records, state.LastUpdated)
}

// Append records rec and durably replaces the history file before returning.
func (s *JSONStore) Append(rec domain.PostedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if _, err := s.loadLocked(); err != nil {
			return err
		}
	}

	next, err := s.hist.with(rec)
	if err != nil {
		return err
	}
	if err := s.persist(next); err != nil {
		return errors.Mark(fmt.Errorf("persist history %s: %w", s.path, err), errors.ErrStateUnavailable)
	}
	s.hist = next
	return nil
}

// Contains reports whether key is recorded in the loaded history.
func (s *JSONStore) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.Contains(key)
}

// Close is a no-op; every append is already on disk.
func (s *JSONStore) Close() error { return nil }

// persist writes h to a temporary file in the target directory, syncs it and
// renames it over the live file so readers see either the old or new document.
func (s *JSONStore) persist(h *History) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	state := stateFile{Records: h.Records, LastUpdated: h.LastUpdated}
	if state.Records == nil {
		state.Records = []domain.PostedRecord{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true

	syncDir(dir)
	return nil
}

// syncDir flushes the directory entry after a rename. Platforms that cannot
// open directories for syncing are skipped.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
