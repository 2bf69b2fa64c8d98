package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-social-poster/internal/app"
	"github.com/samvad-hq/samvad-social-poster/internal/config"
	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute exactly one posting run",
	Long: `Execute exactly one posting run: take the run lock, load the posted history,
select new candidates and publish them in order, recording each one right
after it is published.

Exit status is 0 on success (including nothing to post), 1 when the history
is corrupt or unavailable or another run holds the lock, and 2 on invalid
arguments or configuration.`,
	Args: noArgs,
	RunE: runPost,
}

var runFlags struct {
	limit      int
	mode       string
	statePath  string
	dryRun     bool
	candidates string
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.limit, "limit", 0, "maximum items to post (overrides post_limit)")
	f.StringVar(&runFlags.mode, "mode", "", "posting mode: batch, single-fifo or threaded-reply")
	f.StringVar(&runFlags.statePath, "state-path", "", "posted history file (overrides state_path)")
	f.BoolVar(&runFlags.dryRun, "dry-run", false, "select and format but do not publish or record")
	f.StringVar(&runFlags.candidates, "candidates", "", "candidate document to post from instead of crawling sources")
}

func runPost(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.ApplyOverrides(runOverrides(cmd)); err != nil {
		return err
	}

	poster, err := app.NewPoster(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer poster.Close()

	res, err := poster.RunOnce(cmd.Context())
	if res.RunID != "" || res.State != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
	}
	if cfg.DryRun {
		for _, preview := range res.Previews {
			fmt.Fprintf(cmd.OutOrStdout(), "---\n%s\n", preview)
		}
	}
	if errors.IsAbort(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "run aborted: %s\n", abortReason(err))
	}
	return err
}

func abortReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrLockContention):
		return "another run holds the lock"
	case errors.Is(err, errors.ErrCorruptState):
		return "posted history is corrupt"
	default:
		return "posted history is unavailable"
	}
}

func runOverrides(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	f := cmd.Flags()
	if f.Changed("limit") {
		o.Limit = &runFlags.limit
	}
	if f.Changed("mode") {
		o.Mode = &runFlags.mode
	}
	if f.Changed("state-path") {
		o.StatePath = &runFlags.statePath
	}
	if f.Changed("dry-run") {
		o.DryRun = &runFlags.dryRun
	}
	if f.Changed("candidates") {
		o.CandidatesFile = &runFlags.candidates
	}
	return o
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return invalidArg("%s takes no arguments, got %q", cmd.CommandPath(), args)
	}
	return nil
}
