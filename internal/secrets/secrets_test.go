package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

func TestLookupPrefersEnvironment(t *testing.T) {
	keyring.MockInit()
	t.Setenv("BLUESKY_APP_PASSWORD", " from-env ")

	r := NewResolver("poster-test")
	require.NoError(t, r.Store("BLUESKY_APP_PASSWORD", "from-keyring"))

	v, err := r.Lookup("BLUESKY_APP_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}

func TestLookupFallsBackToKeyring(t *testing.T) {
	keyring.MockInit()
	t.Setenv("GROQ_API_KEY", "")

	r := NewResolver("poster-test")
	require.NoError(t, r.Store("GROQ_API_KEY", "gsk-123"))

	v, err := r.Lookup("GROQ_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "gsk-123", v)
}

func TestLookupMissingIsConfigError(t *testing.T) {
	keyring.MockInit()
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := NewResolver("").Lookup("TELEGRAM_BOT_TOKEN")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))
	assert.Equal(t, 2, errors.ExitCode(err))
	assert.Contains(t, errors.FlattenHints(err), "TELEGRAM_BOT_TOKEN")

	_, err = NewResolver("").Lookup(" ")
	assert.True(t, errors.Is(err, errors.ErrConfig))
}
