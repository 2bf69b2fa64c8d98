package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-social-poster/internal/config"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
	"github.com/samvad-hq/samvad-social-poster/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "poster",
	Short: "Post scraped items to social platforms exactly once",
	Long: `poster collects candidate items (job listings, articles) from configured
sources, skips everything already recorded in the posted history, and posts
the rest through the configured publishers.

Examples:
  poster run --limit 3            # post up to three new items
  poster run --mode single-fifo   # post the oldest new item only
  poster run --dry-run            # show what would be posted
  poster scrape --out data/candidates.json
  poster schedule                 # post on schedule_cron until stopped
  poster history --tail 20
  poster secret set BLUESKY_APP_PASSWORD < password.txt`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return invalidArg("unknown command %q for %q", args[0], cmd.CommandPath())
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Mark(err, errors.ErrInvalidArgument)
	})

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(secretCmd)
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer logger.Close()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poster: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
	}
	return errors.ExitCode(err)
}

func invalidArg(format string, args ...any) error {
	return errors.Mark(fmt.Errorf(format, args...), errors.ErrInvalidArgument)
}

// setup loads configuration and initializes logging for a subcommand.
func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.Init(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
