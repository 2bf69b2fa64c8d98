package posting

import (
	"context"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
	"github.com/samvad-hq/samvad-social-poster/internal/history"
)

// HistoryStore is the durable posted-item history the orchestrator reads and appends to.
type HistoryStore interface {
	Load() (*history.History, error)
	Append(rec domain.PostedRecord) error
}

// Formatter turns a candidate into a ready-to-publish payload.
type Formatter interface {
	Format(ctx context.Context, item domain.CandidateItem) (domain.Payload, error)
}

// Publisher delivers a payload and returns the platform receipt.
type Publisher interface {
	Publish(ctx context.Context, payload domain.Payload) (domain.Receipt, error)
}

// Locker guards a run against concurrent runs on the same state.
type Locker interface {
	Acquire(ctx context.Context) (release func() error, err error)
}
