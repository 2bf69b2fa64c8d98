package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-social-poster/internal/app"
	"github.com/samvad-hq/samvad-social-poster/internal/config"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the posted history (audit trail)",
	Args:  noArgs,
	RunE:  runHistory,
}

var historyFlags struct {
	statePath string
	tail      int
	asJSON    bool
}

func init() {
	f := historyCmd.Flags()
	f.StringVar(&historyFlags.statePath, "state-path", "", "posted history file (overrides state_path)")
	f.IntVar(&historyFlags.tail, "tail", 0, "show only the last N records")
	f.BoolVar(&historyFlags.asJSON, "json", false, "print records as JSON")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyFlags.tail < 0 {
		return invalidArg("--tail must be zero or positive, got %d", historyFlags.tail)
	}
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("state-path") {
		if err := cfg.ApplyOverrides(config.Overrides{StatePath: &historyFlags.statePath}); err != nil {
			return err
		}
	}

	records, err := app.PostedHistory(cfg, historyFlags.tail)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyFlags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POSTED AT\tPUBLISHED ID\tKEY\tTITLE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.PostedAt.Format(time.RFC3339), r.PublishedID, r.NaturalKey, r.DisplayTitle)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d records\n", len(records))
	return nil
}
