package posting

import (
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-social-poster/internal/domain"
)

// State is the lifecycle position of a run.
type State string

const (
	StateNotStarted    State = "not_started"
	StateHistoryLoaded State = "history_loaded"
	StateSelecting     State = "selecting"
	StatePosting       State = "posting"
	StateCompleted     State = "completed"
	StateAborted       State = "aborted"
)

// RunResult summarizes one run.
type RunResult struct {
	RunID string `json:"run_id"`
	State State  `json:"state"`

	Candidates int `json:"candidates"`
	Selected   int `json:"selected"`
	Posted     int `json:"posted"`
	// Skipped counts candidates that were not selected (already posted,
	// repeated, or beyond the limit).
	Skipped       int `json:"skipped"`
	FormatFailed  int `json:"format_failed"`
	PublishFailed int `json:"publish_failed"`
	// NotAttempted counts selected items left untouched because the run
	// halted early (broken reply chain, cancellation, or storage failure).
	NotAttempted int `json:"not_attempted"`

	Interrupted bool `json:"interrupted"`
	DryRun      bool `json:"dry_run"`

	Records []domain.PostedRecord `json:"records,omitempty"`
	// Previews holds the formatted text of each item in a dry run.
	Previews []string `json:"previews,omitempty"`
}

// Failed returns the number of items that failed to format or publish.
func (r RunResult) Failed() int {
	return r.FormatFailed + r.PublishFailed
}

// Summary renders the user-visible one-line run summary.
func (r RunResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s %s: posted=%d skipped=%d failed=%d", shortID(r.RunID), r.State, r.Posted, r.Skipped, r.Failed())
	if r.NotAttempted > 0 {
		fmt.Fprintf(&b, " not_attempted=%d", r.NotAttempted)
	}
	if r.Interrupted {
		b.WriteString(" (interrupted)")
	}
	if r.DryRun {
		fmt.Fprintf(&b, " (dry run, %d would post)", r.Selected-r.FormatFailed)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
