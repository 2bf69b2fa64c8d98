package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-social-poster/internal/errors"
	"github.com/samvad-hq/samvad-social-poster/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage publisher and formatter credentials in the OS keyring",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var secretSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Store a credential read from stdin under keyring_service",
	Long: `Store the first line of stdin in the OS keyring under keyring_service, with
NAME (the environment variable the publisher reads, e.g. BLUESKY_APP_PASSWORD)
as the account. An exported variable of the same name still takes precedence.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return invalidArg("%s takes exactly one NAME, got %d arguments", cmd.CommandPath(), len(args))
		}
		return nil
	},
	RunE: runSecretSet,
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return invalidArg("secret name must not be empty")
	}

	value, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	value = strings.TrimSpace(value)
	if value == "" {
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read secret from stdin: %w", err)
		}
		return invalidArg("no value for %s on stdin", name)
	}

	cfg, _, err := setup()
	if err != nil {
		return err
	}
	if err := secrets.NewResolver(cfg.KeyringService).Store(name, value); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored %s in keyring service %q\n", name, cfg.KeyringService)
	return nil
}
