package main

import (
	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-social-poster/internal/app"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Post on schedule_cron until interrupted",
	Long: `Run one posting pass immediately and then on every schedule_cron tick until
SIGINT or SIGTERM. Each tick takes the run lock, so a tick that overlaps an
external run is skipped with a lock contention error in the logs.`,
	Args: noArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		poster, err := app.NewPoster(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer poster.Close()
		return poster.Schedule(cmd.Context())
	},
}
