// Package secrets resolves credentials from the environment with an OS
// keyring fallback.
package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

// DefaultService is the keyring service name used when none is configured.
const DefaultService = "samvad-social-poster"

// Resolver looks secrets up by environment variable name.
type Resolver struct {
	// Service is the keyring service; the env var name is the account.
	Service string
	getenv  func(string) string
}

// NewResolver returns a resolver backed by the process environment and the
// OS keyring under service.
func NewResolver(service string) *Resolver {
	if strings.TrimSpace(service) == "" {
		service = DefaultService
	}
	return &Resolver{Service: service, getenv: os.Getenv}
}

// Lookup returns the secret named envKey. A secret that is neither in the
// environment nor in the keyring is a startup configuration error.
func (r *Resolver) Lookup(envKey string) (string, error) {
	envKey = strings.TrimSpace(envKey)
	if envKey == "" {
		return "", errors.Mark(fmt.Errorf("secret name is empty"), errors.ErrConfig)
	}

	getenv := os.Getenv
	service := DefaultService
	if r != nil {
		if r.getenv != nil {
			getenv = r.getenv
		}
		if r.Service != "" {
			service = r.Service
		}
	}

	if v := strings.TrimSpace(getenv(envKey)); v != "" {
		return v, nil
	}

	v, err := keyring.Get(service, envKey)
	if err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", errors.WithHintf(
			errors.Mark(fmt.Errorf("read %s from keyring %q: %w", envKey, service, err), errors.ErrConfig),
			"export %s or store it with the OS keyring", envKey)
	}
	return "", errors.WithHintf(
		errors.Mark(fmt.Errorf("secret %s is not set", envKey), errors.ErrConfig),
		"export %s or store it in the keyring under service %q", envKey, service)
}

// Store saves a secret in the keyring.
func (r *Resolver) Store(envKey, value string) error {
	service := DefaultService
	if r != nil && r.Service != "" {
		service = r.Service
	}
	if err := keyring.Set(service, envKey, value); err != nil {
		return fmt.Errorf("store %s in keyring: %w", envKey, err)
	}
	return nil
}
