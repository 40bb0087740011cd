package runlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobpilot/internal/domain"
	"jobpilot/internal/submit"
)

func TestSnapshotRoundTrips(t *testing.T) {
	w := New(t.TempDir())

	leads := []domain.Lead{{ID: 1, Title: "Backend Developer", Company: "Acme", Status: domain.StatusFound}}
	path, err := w.Snapshot(leads)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []domain.Lead
	require.NoError(t, json.Unmarshal(b, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Company)
}

func TestAttemptAppendsToDailyLog(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	rec := submit.AttemptRecord{
		LeadID:    7,
		Title:     "Backend Developer",
		Company:   "Acme",
		URL:       "https://example.com/jobs/7",
		States:    []submit.State{submit.StateIdle, submit.StateNavigate, submit.StateReview},
		Fields:    []string{"Phone number = +44 1234"},
		Outcome:   submit.OutcomeDryRun,
		Reason:    "dry_run",
		StartedAt: time.Now(),
	}
	w.Attempt(rec)
	w.Attempt(rec)

	path := filepath.Join(dir, "attempts", time.Now().Format("2006-01-02")+".log")
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(b)
	assert.Contains(t, content, "lead #7")
	assert.Contains(t, content, "idle -> navigate -> review")
	assert.Contains(t, content, "dry_run")
	// both attempts landed in the same file
	assert.Equal(t, 2, strings.Count(content, "lead #7"))
}

func TestCycleLine(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	line := w.Cycle(CycleSummary{NewLeads: 4, Duplicates: 2, Drafts: 3, Applied: 1, Failures: 1})
	assert.Contains(t, line, "4 new")
	assert.Contains(t, line, "1 applied")

	b, err := os.ReadFile(filepath.Join(dir, "cycles.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), line)
}
