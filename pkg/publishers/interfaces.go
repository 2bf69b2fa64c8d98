package publishers

import (
	"context"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

// Publisher sends formatted posts to a platform or downstream sink
// (Bluesky, Telegram, SQS, HTTP, etc).
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, p domain.Payload) (domain.Receipt, error)
}

// SecretSource resolves credentials by environment variable name.
type SecretSource interface {
	Lookup(envKey string) (string, error)
}
