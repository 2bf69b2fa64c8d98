package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

const (
	recordsBucket = "records"
	keysBucket    = "keys"
	metaBucket    = "meta"
	lastUpdateKey = "last_updated"
	sequenceBytes = 8
)

// boltStore implements a Store backed by BoltDB. Records are keyed by a
// monotonically increasing sequence so iteration order is post order; the
// keys bucket maps natural keys to that sequence for membership checks.
//
// The database is opened for each Load and Append and closed again, so the
// file lock bbolt takes is only held while the caller holds the run lock.
type boltStore struct {
	path    string
	timeout time.Duration

	mu     sync.Mutex
	hist   *History
	loaded bool
}

const defaultBoltTimeout = time.Second

// openBolt prepares a BoltDB-backed Store. The file is not touched until the
// first Load or Append.
func openBolt(path string) (Store, error) {
	return &boltStore{path: path, timeout: defaultBoltTimeout}, nil
}

// open opens the database and makes sure the buckets exist.
func (b *boltStore) open() (*bolt.DB, error) {
	dir := filepath.Dir(b.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Mark(fmt.Errorf("create storage directory: %w", err), errors.ErrStateUnavailable)
		}
	}

	db, err := bolt.Open(b.path, 0o600, &bolt.Options{Timeout: b.timeout})
	if err != nil {
		return nil, classifyOpenErr(err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{recordsBucket, keysBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, errors.Mark(fmt.Errorf("init buckets: %w", err), errors.ErrStateUnavailable)
	}
	return db, nil
}

func classifyOpenErr(err error) error {
	err = fmt.Errorf("open bbolt db: %w", err)
	switch {
	case errors.IsAny(err, berrors.ErrTimeout):
		return errors.Mark(err, errors.ErrLockContention)
	case errors.IsAny(err, berrors.ErrInvalid, berrors.ErrChecksum, berrors.ErrVersionMismatch):
		return errors.Mark(err, errors.ErrCorruptState)
	default:
		return errors.Mark(err, errors.ErrStateUnavailable)
	}
}

// Close is a no-op; the database is closed after every operation.
func (b *boltStore) Close() error {
	return nil
}

// Load reads every record in sequence order. A missing file is an empty
// history and is not created.
func (b *boltStore) Load() (*History, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := os.Stat(b.path); os.IsNotExist(err) {
		b.hist = Empty()
		b.loaded = true
		return b.hist, nil
	}

	db, err := b.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return b.loadLocked(db)
}

func (b *boltStore) loadLocked(db *bolt.DB) (*History, error) {
	var (
		records     []domain.PostedRecord
		lastUpdated *time.Time
	)
	err := db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(recordsBucket))
		if bucket == nil {
			return fmt.Errorf("records bucket missing")
		}
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			if len(k) != sequenceBytes {
				return fmt.Errorf("record key %x is not a sequence", k)
			}
			var rec domain.PostedRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			records = append(records, rec)
		}

		if meta := tx.Bucket([]byte(metaBucket)); meta != nil {
			if raw := meta.Get([]byte(lastUpdateKey)); raw != nil {
				ts, err := time.Parse(time.RFC3339Nano, string(raw))
				if err != nil {
					return fmt.Errorf("decode last_updated: %w", err)
				}
				lastUpdated = &ts
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Mark(fmt.Errorf("load bbolt history: %w", err), errors.ErrCorruptState)
	}

	hist, err := New(records, lastUpdated)
	if err != nil {
		return nil, errors.Mark(fmt.Errorf("load bbolt history: %w", err), errors.ErrCorruptState)
	}
	b.hist = hist
	b.loaded = true
	return hist, nil
}

// Append writes rec, its key index and last_updated in a single transaction.
func (b *boltStore) Append(rec domain.PostedRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	db, err := b.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if !b.loaded {
		if _, err := b.loadLocked(db); err != nil {
			return err
		}
	}

	next, err := b.hist.with(rec)
	if err != nil {
		return err
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		keys := tx.Bucket([]byte(keysBucket))
		records := tx.Bucket([]byte(recordsBucket))
		meta := tx.Bucket([]byte(metaBucket))
		if keys == nil || records == nil || meta == nil {
			return fmt.Errorf("history buckets missing")
		}
		if keys.Get([]byte(rec.NaturalKey)) != nil {
			return errors.Mark(fmt.Errorf("append %q", rec.NaturalKey), errors.ErrDuplicateRecord)
		}

		seq, err := records.NextSequence()
		if err != nil {
			return err
		}
		seqKey := make([]byte, sequenceBytes)
		binary.BigEndian.PutUint64(seqKey, seq)

		if err := records.Put(seqKey, value); err != nil {
			return err
		}
		if err := keys.Put([]byte(rec.NaturalKey), seqKey); err != nil {
			return err
		}
		return meta.Put([]byte(lastUpdateKey), []byte(rec.PostedAt.UTC().Format(time.RFC3339Nano)))
	})
	if err != nil {
		if errors.Is(err, errors.ErrDuplicateRecord) {
			return err
		}
		return errors.Mark(fmt.Errorf("persist bbolt history: %w", err), errors.ErrStateUnavailable)
	}

	b.hist = next
	return nil
}

// Contains reports whether key is recorded in the loaded history.
func (b *boltStore) Contains(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hist.Contains(key)
}
