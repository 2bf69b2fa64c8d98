package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samvad-hq/samvad-social-poster/internal/app"
)

const defaultScrapeOut = "./data/candidates.json"

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect candidates from the configured sources into a file",
	Args:  noArgs,
	RunE:  runScrape,
}

var scrapeOut string

func init() {
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "", "candidate document to write (default candidates_file or "+defaultScrapeOut+")")
}

func runScrape(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	out := strings.TrimSpace(scrapeOut)
	if out == "" {
		out = cfg.CandidatesFile
	}
	if out == "" {
		out = defaultScrapeOut
	}

	collector, err := app.NewCollector(cfg, log)
	if err != nil {
		return err
	}
	n, err := collector.Scrape(cmd.Context(), out)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d candidates to %s\n", n, out)
	return nil
}
