// Package runlog writes the audit artifacts of a run: a leads snapshot per
// search, one log file per submission attempt, and a cumulative cycle line.
package runlog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jobpilot/internal/domain"
	"jobpilot/internal/submit"
)

type Writer struct {
	Dir string // root artifacts dir, usually <data_dir>/runs
}

func New(dir string) *Writer {
	return &Writer{Dir: dir}
}

// Snapshot writes the current lead set as a timestamped JSON file so a search
// run's result is inspectable after the database has moved on.
func (w *Writer) Snapshot(leads []domain.Lead) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(w.Dir, "leads_"+time.Now().Format("20060102_150405")+".json")
	b, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Attempt appends one submission attempt to the run's attempt log. Files are
// per-day so a day's automation leaves a single reviewable trail.
func (w *Writer) Attempt(rec submit.AttemptRecord) {
	dir := filepath.Join(w.Dir, "attempts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[runlog] attempts dir: %v", err)
		return
	}
	path := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] lead #%d %s @ %s\n",
		rec.StartedAt.Format(time.RFC3339), rec.LeadID, rec.Title, rec.Company)
	fmt.Fprintf(&b, "  url      : %s\n", rec.URL)
	fmt.Fprintf(&b, "  states   : %s\n", joinStates(rec.States))
	for _, f := range rec.Fields {
		fmt.Fprintf(&b, "  filled   : %s\n", f)
	}
	fmt.Fprintf(&b, "  outcome  : %s", rec.Outcome)
	if rec.Reason != "" {
		fmt.Fprintf(&b, " (%s)", rec.Reason)
	}
	fmt.Fprintf(&b, "\n  duration : %s\n\n", rec.Duration.Round(time.Millisecond))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[runlog] open attempt log: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		log.Printf("[runlog] write attempt log: %v", err)
	}
}

// CycleSummary is the single status line emitted at the end of a full daily
// cycle, also appended to cycles.log for history.
type CycleSummary struct {
	NewLeads   int
	Duplicates int
	Filtered   int
	Drafts     int
	Applied    int
	DryRuns    int
	Skipped    int
	Failures   int
	SourceErrs int
}

func (w *Writer) Cycle(s CycleSummary) string {
	line := fmt.Sprintf(
		"cycle done: %d new, %d duplicates, %d filtered, %d drafts, %d applied, %d dry-run, %d skipped, %d failed, %d source errors",
		s.NewLeads, s.Duplicates, s.Filtered, s.Drafts, s.Applied, s.DryRuns, s.Skipped, s.Failures, s.SourceErrs)

	if err := os.MkdirAll(w.Dir, 0o755); err == nil {
		path := filepath.Join(w.Dir, "cycles.log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "[%s] %s\n", time.Now().Format(time.RFC3339), line)
			f.Close()
		}
	}
	return line
}

func joinStates(states []submit.State) string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = string(s)
	}
	return strings.Join(out, " -> ")
}
