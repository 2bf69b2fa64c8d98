package history

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// Store is the durable record of posted natural keys.
//
// Load must be called before Contains reflects persisted state. Append
// persists the full updated history before returning; when it returns an
// error the previously loaded history is still the current one.
type Store interface {
	Load() (*History, error)
	Append(rec domain.PostedRecord) error
	Contains(naturalKey string) bool
	Close() error
}

// Supported store types.
const (
	TypeJSON   = "json"
	TypeBolt   = "bbolt"
	TypeMemory = "memory"
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", TypeJSON:
		if strings.TrimSpace(path) == "" {
			return nil, errors.Mark(fmt.Errorf("json storage requires a path"), errors.ErrConfig)
		}
		return NewJSONStore(path), nil
	case TypeBolt:
		if strings.TrimSpace(path) == "" {
			return nil, errors.Mark(fmt.Errorf("bbolt storage requires a path"), errors.ErrConfig)
		}
		return openBolt(path)
	case TypeMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Mark(fmt.Errorf("unsupported storage type %q", typ), errors.ErrConfig)
	}
}
